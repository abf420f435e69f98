package model

import "fmt"

// Pos is an absolute byte offset in the address space of a SourceMap.
// Like go/token, the zero value means "no position".
type Pos int

// NoPos is the zero Pos.
const NoPos Pos = 0

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool {
	return p != NoPos
}

// Span is a half-open byte interval [Lo, Hi).
type Span struct {
	Lo Pos
	Hi Pos
}

// NoSpan is the zero Span.
var NoSpan = Span{}

// SpanOf builds a Span from two positions.
func SpanOf(lo, hi Pos) Span {
	return Span{Lo: lo, Hi: hi}
}

// IsValid reports whether both ends are known and ordered.
func (s Span) IsValid() bool {
	return s.Lo.IsValid() && s.Hi.IsValid() && s.Lo <= s.Hi
}

// IsEmpty reports whether the span has zero width.
func (s Span) IsEmpty() bool {
	return s.Lo == s.Hi
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return s.Lo <= other.Lo && other.Hi <= s.Hi
}

// Overlaps reports whether the two spans share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s.Lo < other.Hi && other.Lo < s.Hi
}

// Union returns the smallest span covering both s and other.
func (s Span) Union(other Span) Span {
	out := s
	if other.Lo < out.Lo {
		out.Lo = other.Lo
	}

	if other.Hi > out.Hi {
		out.Hi = other.Hi
	}

	return out
}

// ShrinkToHi returns the empty span at the end of s.
func (s Span) ShrinkToHi() Span {
	return Span{Lo: s.Hi, Hi: s.Hi}
}

// WithHi returns a copy of s ending at hi.
func (s Span) WithHi(hi Pos) Span {
	return Span{Lo: s.Lo, Hi: hi}
}

// WithLo returns a copy of s starting at lo.
func (s Span) WithLo(lo Pos) Span {
	return Span{Lo: lo, Hi: s.Hi}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Lo, s.Hi)
}

// BlockID indexes Body.Blocks.
type BlockID int

// EntryBlock is the block where execution of a body starts.
const EntryBlock BlockID = 0

// StatementKind classifies a statement inside a basic block.
type StatementKind int

const (
	// StatementAssign is an assignment or definition.
	StatementAssign StatementKind = iota
	// StatementEval evaluates an expression (calls, conditions, sends).
	StatementEval
	// StatementDecl is a local declaration.
	StatementDecl
	// StatementClosure marks a nested function literal. Its span belongs to
	// the nested function and is never claimed by the enclosing one.
	StatementClosure
	// StatementNop does nothing.
	StatementNop
	// StatementStorage marks a compiler-managed storage lifetime change.
	StatementStorage
	// StatementSynthetic is compiler-generated and has no user-facing span.
	StatementSynthetic
	// StatementCoverage is an injected coverage statement.
	StatementCoverage
)

var statementKindNames = map[StatementKind]string{
	StatementAssign:    "assign",
	StatementEval:      "eval",
	StatementDecl:      "decl",
	StatementClosure:   "closure",
	StatementNop:       "nop",
	StatementStorage:   "storage",
	StatementSynthetic: "synthetic",
	StatementCoverage:  "coverage",
}

func (k StatementKind) String() string {
	if name, ok := statementKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// Statement is a non-branching instruction.
type Statement struct {
	Kind     StatementKind
	Span     Span
	Coverage *CoverageKind // set only for StatementCoverage
}

// TerminatorKind classifies the instruction ending a basic block.
type TerminatorKind int

const (
	// TerminatorGoto jumps unconditionally to its single target.
	TerminatorGoto TerminatorKind = iota
	// TerminatorSwitch branches on a condition to one of its targets.
	TerminatorSwitch
	// TerminatorReturn leaves the function.
	TerminatorReturn
	// TerminatorUnreachable can never execute.
	TerminatorUnreachable
	// TerminatorPanic unwinds out of the function.
	TerminatorPanic
	// TerminatorFalseEdge is a jump kept only for analysis purposes.
	TerminatorFalseEdge
)

var terminatorKindNames = map[TerminatorKind]string{
	TerminatorGoto:        "goto",
	TerminatorSwitch:      "switch",
	TerminatorReturn:      "return",
	TerminatorUnreachable: "unreachable",
	TerminatorPanic:       "panic",
	TerminatorFalseEdge:   "false-edge",
}

func (k TerminatorKind) String() string {
	if name, ok := terminatorKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("TerminatorKind(%d)", int(k))
}

// Terminator ends a basic block. Targets are the successor slots, in order.
type Terminator struct {
	Kind    TerminatorKind
	Span    Span
	Targets []BlockID
}

// Block is a basic block: straight-line statements ended by a terminator.
type Block struct {
	Statements []Statement
	Terminator Terminator
}

// Body is the control-flow graph of one function.
type Body struct {
	Blocks []Block
	// Span covers the function body, braces included.
	Span Span
	// SigSpan runs from the start of the signature to the start of the body.
	// It is NoSpan when the function has no usable signature.
	SigSpan Span

	CoverageInfo *FunctionCoverageInfo
}

// Block returns a pointer to block id.
func (b *Body) Block(id BlockID) *Block {
	return &b.Blocks[id]
}

// AddBlock appends a block and returns its id.
func (b *Body) AddBlock(block Block) BlockID {
	b.Blocks = append(b.Blocks, block)

	return BlockID(len(b.Blocks) - 1)
}

// Predecessors counts, for every block, the successor slots pointing to it.
// A block reached twice from the same terminator is listed twice.
func (b *Body) Predecessors() [][]BlockID {
	preds := make([][]BlockID, len(b.Blocks))

	for i := range b.Blocks {
		for _, succ := range b.Blocks[i].Terminator.Targets {
			preds[succ] = append(preds[succ], BlockID(i))
		}
	}

	return preds
}
