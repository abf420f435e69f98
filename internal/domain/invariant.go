package domain

import (
	"fmt"
	"log/slog"
)

// InvariantError reports an internal inconsistency in the coverage planner.
// It is raised as a panic only when strict invariant checking is enabled.
type InvariantError struct {
	Function string
	Reason   string
}

func (e *InvariantError) Error() string {
	if e.Function == "" {
		return "coverage invariant violated: " + e.Reason
	}

	return fmt.Sprintf("coverage invariant violated in %s: %s", e.Function, e.Reason)
}

// invariantViolated panics in strict mode and otherwise logs the violation so
// the caller can drop the offending item.
func invariantViolated(strict bool, function, format string, args ...any) {
	err := &InvariantError{Function: function, Reason: fmt.Sprintf(format, args...)}
	if strict {
		panic(err)
	}

	slog.Warn("Dropping coverage item", "function", function, "error", err)
}
