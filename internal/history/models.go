package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Stage names where a failure was recorded.
const (
	StageParse   = "parse"
	StageFilter  = "filter"
	StageCompile = "compile"
)

// Run is one conversion invocation.
type Run struct {
	ID         string
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
	Inputs     []string
	Output     string
	Filter     string
	Summary    Summary
	// ErrorMessage is set when the run itself failed.
	ErrorMessage string
}

// Summary holds the outcome counts of a finished run.
type Summary struct {
	ChartsWritten int
	Resources     int
	Filtered      int
	Failed        int
}

// Failure is one chart or beatmap skipped during a run.
type Failure struct {
	Stage     string
	Item      string
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
