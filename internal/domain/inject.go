package domain

import (
	"slices"

	"covmap.dev/pkg/covmap/internal/domain/coverage"
	m "covmap.dev/pkg/covmap/internal/model"
)

// injector mutates one body once every counter has been assigned.
type injector struct {
	function string
	body     *m.Body
	graph    *coverage.Graph
	strict   bool
}

// inject adds coverage statements for every node term and splices a block
// onto every edge that has a physical counter. It returns the number of
// blocks added.
func (in *injector) inject(counters *coverage.Counters, spans *coverage.Spans) int {
	for _, nt := range counters.NodeTerms() {
		leader := in.graph.Data(nt.BCB).Leader()

		switch {
		case nt.Term.IsCounter():
			in.injectStatement(leader, m.CoverageKind{Op: m.CounterIncrement, ID: nt.Term.ID})
		case spans.HasMappings(nt.BCB):
			in.injectStatement(leader, m.CoverageKind{Op: m.ExpressionUsed, ID: nt.Term.ID})
		}
	}

	spliced := 0

	for _, et := range counters.EdgeTerms() {
		if !et.Term.IsCounter() {
			continue
		}

		from := in.graph.Data(et.From).Last()
		to := in.graph.Data(et.To).Leader()

		newBlock, ok := in.spliceEdge(from, to)
		if !ok {
			continue
		}

		in.injectStatement(newBlock, m.CoverageKind{Op: m.CounterIncrement, ID: et.Term.ID})
		spliced++
	}

	return spliced
}

// spliceEdge inserts a new block on the edge from -> to and returns it.
// Exactly one successor slot of from is retargeted.
func (in *injector) spliceEdge(from, to m.BlockID) (m.BlockID, bool) {
	fromTerm := in.body.Block(from).Terminator

	slot := slices.Index(fromTerm.Targets, to)
	if slot < 0 {
		invariantViolated(in.strict, in.function, "block %d has no edge to block %d", from, to)
		return 0, false
	}

	newBlock := in.body.AddBlock(m.Block{
		Terminator: m.Terminator{
			Kind:    m.TerminatorGoto,
			Span:    fromTerm.Span.ShrinkToHi(),
			Targets: []m.BlockID{to},
		},
	})

	// AddBlock may have moved the blocks.
	in.body.Block(from).Terminator.Targets[slot] = newBlock

	return newBlock, true
}

func (in *injector) injectStatement(id m.BlockID, kind m.CoverageKind) {
	block := in.body.Block(id)

	stmt := m.Statement{
		Kind:     m.StatementCoverage,
		Span:     block.Terminator.Span,
		Coverage: &kind,
	}

	block.Statements = slices.Insert(block.Statements, 0, stmt)
}
