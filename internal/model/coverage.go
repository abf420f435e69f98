package model

import (
	"fmt"
	"strings"
)

// TermKind distinguishes physical counters from derived expressions.
type TermKind int

const (
	// TermCounter is a physical, runtime-incremented counter.
	TermCounter TermKind = iota
	// TermExpression is computed from other terms.
	TermExpression
)

func (k TermKind) String() string {
	switch k {
	case TermCounter:
		return "counter"
	case TermExpression:
		return "expression"
	}

	return fmt.Sprintf("TermKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k TermKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TermKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "counter":
		*k = TermCounter
	case "expression":
		*k = TermExpression
	default:
		return fmt.Errorf("unknown term kind %q", text)
	}

	return nil
}

// Term is a counting term: a handle to a counter or an expression.
type Term struct {
	Kind TermKind `yaml:"kind" json:"kind"`
	ID   uint32   `yaml:"id" json:"id"`
}

// CounterTerm returns the term for counter id.
func CounterTerm(id uint32) Term {
	return Term{Kind: TermCounter, ID: id}
}

// ExpressionTerm returns the term for expression id.
func ExpressionTerm(id uint32) Term {
	return Term{Kind: TermExpression, ID: id}
}

// IsCounter reports whether the term is a physical counter.
func (t Term) IsCounter() bool {
	return t.Kind == TermCounter
}

func (t Term) String() string {
	if t.Kind == TermCounter {
		return fmt.Sprintf("c%d", t.ID)
	}

	return fmt.Sprintf("e%d", t.ID)
}

// Op is the operator of an expression.
type Op int

const (
	// OpAdd sums both operands.
	OpAdd Op = iota
	// OpSubtract subtracts the right operand from the left one.
	OpSubtract
)

func (o Op) String() string {
	if o == OpAdd {
		return "+"
	}

	return "-"
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	if o == OpAdd {
		return []byte("add"), nil
	}

	return []byte("subtract"), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(text []byte) error {
	switch string(text) {
	case "add":
		*o = OpAdd
	case "subtract":
		*o = OpSubtract
	default:
		return fmt.Errorf("unknown expression op %q", text)
	}

	return nil
}

// Expression derives a count from two earlier terms.
type Expression struct {
	ID  uint32 `yaml:"id" json:"id"`
	LHS Term   `yaml:"lhs" json:"lhs"`
	Op  Op     `yaml:"op" json:"op"`
	RHS Term   `yaml:"rhs" json:"rhs"`
}

func (e Expression) String() string {
	return fmt.Sprintf("e%d = %s %s %s", e.ID, e.LHS, e.Op, e.RHS)
}

// GapRegionBit is the end-column bit reserved for gap regions.
const GapRegionBit uint32 = 1 << 31

// CodeRegion is a source interval with 1-based line and byte-column numbers.
type CodeRegion struct {
	FileName  string `yaml:"file" json:"file"`
	StartLine uint32 `yaml:"start_line" json:"start_line"`
	StartCol  uint32 `yaml:"start_col" json:"start_col"`
	EndLine   uint32 `yaml:"end_line" json:"end_line"`
	EndCol    uint32 `yaml:"end_col" json:"end_col"`
}

func (r CodeRegion) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", r.FileName, r.StartLine, r.StartCol, r.EndLine, r.EndCol)
}

// Mapping states that a region executed as many times as its term counts.
type Mapping struct {
	Term   Term       `yaml:"term" json:"term"`
	Region CodeRegion `yaml:"region" json:"region"`
}

// FunctionCoverageInfo is the per-function descriptor handed to the emitter.
type FunctionCoverageInfo struct {
	SourceHash  uint64       `yaml:"source_hash" json:"source_hash"`
	NumCounters uint32       `yaml:"num_counters" json:"num_counters"`
	Expressions []Expression `yaml:"expressions" json:"expressions"`
	Mappings    []Mapping    `yaml:"mappings" json:"mappings"`
}

// String renders the descriptor for debug logs.
func (f *FunctionCoverageInfo) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "hash=%016x counters=%d", f.SourceHash, f.NumCounters)

	for _, expr := range f.Expressions {
		fmt.Fprintf(&b, " [%s]", expr)
	}

	for _, mapping := range f.Mappings {
		fmt.Fprintf(&b, " %s@%s", mapping.Term, mapping.Region)
	}

	return b.String()
}

// CoverageOp is what an injected coverage statement does at runtime.
type CoverageOp int

const (
	// CounterIncrement bumps a physical counter.
	CounterIncrement CoverageOp = iota
	// ExpressionUsed marks that an expression's code was reached, so that
	// report tooling can tell dead code apart.
	ExpressionUsed
)

func (o CoverageOp) String() string {
	if o == CounterIncrement {
		return "counter-increment"
	}

	return "expression-used"
}

// CoverageKind is the payload of an injected StatementCoverage.
type CoverageKind struct {
	Op CoverageOp
	ID uint32
}
