package table

import (
	"errors"
	"fmt"
)

// ErrSourceUnreadable matches any SourceUnreadableError via errors.Is.
var ErrSourceUnreadable = errors.New("source unreadable")

// SourceUnreadableError reports that a source could not be parsed into rows at all.
// Callers are expected to show the message and continue with an empty table.
type SourceUnreadableError struct {
	Source string
	Err    error
}

func (e *SourceUnreadableError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("could not read source: %v", e.Err)
	}
	return fmt.Sprintf("could not read %s: %v", e.Source, e.Err)
}

func (e *SourceUnreadableError) Unwrap() error { return e.Err }

func (e *SourceUnreadableError) Is(target error) bool { return target == ErrSourceUnreadable }

// Unreadable wraps err as a SourceUnreadableError unless it already is one.
func Unreadable(source string, err error) error {
	if err == nil {
		return nil
	}
	var su *SourceUnreadableError
	if errors.As(err, &su) {
		return err
	}
	return &SourceUnreadableError{Source: source, Err: err}
}
