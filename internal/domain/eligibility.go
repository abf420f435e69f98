package domain

import (
	m "covmap.dev/pkg/covmap/internal/model"
)

// ineligibleReason explains why fn gets no coverage, or returns "" when it
// can be instrumented.
func ineligibleReason(fn *m.Function) string {
	switch {
	case !fn.Kind.IsFnLike():
		return "not a function"
	case fn.Generated:
		return "generated code"
	case fn.CoverageOff:
		return "coverage disabled by directive"
	case fn.Body == nil || len(fn.Body.Blocks) == 0:
		return "no body"
	case fn.Body.Blocks[m.EntryBlock].Terminator.Kind == m.TerminatorUnreachable:
		return "unreachable entry"
	}

	return ""
}
