package model

import "fmt"

// ItemKind is the syntactic kind of a definition.
type ItemKind string

const (
	// KindFunc is a top-level function.
	KindFunc ItemKind = "func"
	// KindMethod is a function with a receiver.
	KindMethod ItemKind = "method"
	// KindClosure is a function literal.
	KindClosure ItemKind = "closure"
	// KindConst is a constant declaration.
	KindConst ItemKind = "const"
	// KindVar is a package-level variable.
	KindVar ItemKind = "var"
	// KindType is a type declaration.
	KindType ItemKind = "type"
)

// IsFnLike reports whether the kind has a body that runs at runtime.
func (k ItemKind) IsFnLike() bool {
	return k == KindFunc || k == KindMethod || k == KindClosure
}

// Function is one instrumentable unit with its eligibility metadata.
type Function struct {
	Name string
	Kind ItemKind
	// Generated marks code the user did not write (e.g. generated files).
	Generated bool
	// CoverageOff marks an explicit opt-out.
	CoverageOff bool
	Body        *Body
}

// Status is the outcome of instrumenting one function.
type Status int

const (
	// StatusInstrumented means counters were injected and a descriptor emitted.
	StatusInstrumented Status = iota
	// StatusNotEligible means the function was skipped before analysis.
	StatusNotEligible
	// StatusNoSpans means no source span could be attributed.
	StatusNoSpans
	// StatusNoMappings means no span could be turned into a code region.
	StatusNoMappings
)

var statusNames = map[Status]string{
	StatusInstrumented: "instrumented",
	StatusNotEligible:  "not-eligible",
	StatusNoSpans:      "no-spans",
	StatusNoMappings:   "no-mappings",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown status %q", text)
}
