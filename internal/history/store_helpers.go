package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// timeLayout sorts lexically in chronological order, which ListRuns and
// Prune rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		inputsJSON  string
		filter      sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&startedRaw,
		&finishedRaw,
		&inputsJSON,
		&run.Output,
		&filter,
		&run.Summary.ChartsWritten,
		&run.Summary.Resources,
		&run.Summary.Filtered,
		&run.Summary.Failed,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Filter = filter.String
	run.ErrorMessage = errorMsg.String
	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return nil, err
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
