package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	ErrMissingField           = errors.New("missing field")
	ErrMalformed              = errors.New("malformed chart")
	ErrIO                     = errors.New("i/o failure")
	ErrNameCollisionExhausted = errors.New("name collision exhausted")
	ErrAlreadyExists          = errors.New("already exists")
	ErrConfiguration          = errors.New("configuration error")
	ErrLocked                 = errors.New("locked by another conversion")
)

// Kind labels used in reports and the history ledger.
const (
	KindMissingField  = "missing_field"
	KindMalformed     = "malformed"
	KindIO            = "io_failure"
	KindNameExhausted = "name_collision_exhausted"
	KindAlreadyExists = "already_exists"
	KindConfiguration = "configuration"
	KindLocked        = "locked"
	KindFiltered      = "filtered"
	KindUnknown       = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// AlreadyExists tags err so that it matches both ErrAlreadyExists and fs.ErrExist.
func AlreadyExists(component, operation, message string) error {
	return Wrap(ErrAlreadyExists, component, operation, message, fs.ErrExist)
}

// KindOf maps an error to the stable kind label persisted in history.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return KindMissingField
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrNameCollisionExhausted):
		return KindNameExhausted
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrLocked):
		return KindLocked
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, ": ")
}
