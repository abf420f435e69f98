package coverage

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	m "covmap.dev/pkg/covmap/internal/model"
)

// bodyBuilder lays blocks out on consecutive ten-byte lines so that every
// block gets its own distinct source span.
type bodyBuilder struct {
	body m.Body
}

func newBody() *bodyBuilder {
	return &bodyBuilder{body: m.Body{Span: m.SpanOf(1, 1000)}}
}

func (b *bodyBuilder) spanOf(id int) m.Span {
	lo := m.Pos(10 + id*10)
	return m.SpanOf(lo, lo+5)
}

func (b *bodyBuilder) add(kind m.TerminatorKind, targets ...m.BlockID) *bodyBuilder {
	id := len(b.body.Blocks)
	span := b.spanOf(id)

	b.body.Blocks = append(b.body.Blocks, m.Block{
		Statements: []m.Statement{{Kind: m.StatementAssign, Span: span}},
		Terminator: m.Terminator{Kind: kind, Span: span.ShrinkToHi(), Targets: targets},
	})

	return b
}

func (b *bodyBuilder) gotoBlock(to m.BlockID) *bodyBuilder {
	return b.add(m.TerminatorGoto, to)
}

func (b *bodyBuilder) switchBlock(targets ...m.BlockID) *bodyBuilder {
	return b.add(m.TerminatorSwitch, targets...)
}

func (b *bodyBuilder) returnBlock() *bodyBuilder {
	return b.add(m.TerminatorReturn)
}

func (b *bodyBuilder) build() *m.Body {
	return &b.body
}

// diamondBody is `if c { a } else { b }; return`.
func diamondBody() *m.Body {
	return newBody().
		switchBlock(1, 2).
		gotoBlock(3).
		gotoBlock(3).
		returnBlock().
		build()
}

// loopBody is `for c { body }; return`.
func loopBody() *m.Body {
	return newBody().
		gotoBlock(1).
		switchBlock(2, 3).
		gotoBlock(1).
		returnBlock().
		build()
}

// nestedLoopBody has an inner loop with an early exit out of both loops.
func nestedLoopBody() *m.Body {
	return newBody().
		gotoBlock(1).      // 0: entry
		switchBlock(2, 7). // 1: outer header
		gotoBlock(3).      // 2: outer body
		switchBlock(4, 6). // 3: inner header
		switchBlock(5, 7). // 4: inner body, may break out
		gotoBlock(3).      // 5: inner latch
		gotoBlock(1).      // 6: outer latch
		returnBlock().     // 7: exit
		build()
}

// switchBody is a three-way switch whose arms all meet again.
func switchBody() *m.Body {
	return newBody().
		switchBlock(1, 2, 3).
		gotoBlock(4).
		gotoBlock(4).
		gotoBlock(4).
		returnBlock().
		build()
}

// earlyReturnBody has two returns and a shared tail.
func earlyReturnBody() *m.Body {
	return newBody().
		switchBlock(1, 2).
		returnBlock().
		switchBlock(3, 4).
		gotoBlock(5).
		gotoBlock(5).
		returnBlock().
		build()
}

// entryLoopBody jumps back to the entry block from two of its three arms.
func entryLoopBody() *m.Body {
	return newBody().
		switchBlock(1, 2, 3).
		gotoBlock(0).
		gotoBlock(0).
		returnBlock().
		build()
}

// sharedLatchBody has two loops through header 2 that share the latch 3.
// The latch is entered both from the header and from the inner branch 4.
func sharedLatchBody() *m.Body {
	return newBody().
		gotoBlock(2).      // 0: entry
		switchBlock(4, 5). // 1
		switchBlock(1, 3). // 2: header
		gotoBlock(2).      // 3: latch
		switchBlock(3, 5). // 4
		returnBlock().     // 5: exit
		build()
}

func allMapped(BCB) bool { return true }

// evalTerm computes the value of a term from the physical counter values.
func evalTerm(t *testing.T, exprs []m.Expression, counters []int64, term m.Term) int64 {
	t.Helper()

	if term.IsCounter() {
		require.Less(t, int(term.ID), len(counters))
		return counters[term.ID]
	}

	require.Less(t, int(term.ID), len(exprs))
	expr := exprs[term.ID]

	lhs := evalTerm(t, exprs, counters, expr.LHS)
	rhs := evalTerm(t, exprs, counters, expr.RHS)

	if expr.Op == m.OpAdd {
		return lhs + rhs
	}

	return lhs - rhs
}

// flow is the observed execution count of every node and edge of a graph.
type flow struct {
	nodes []int64
	edges map[Edge]int64
}

// simulate runs random walks from the start node to an exit node.
func simulate(graph *Graph, runs int, seed int64) flow {
	rng := rand.New(rand.NewSource(seed))
	f := flow{nodes: make([]int64, graph.NumNodes()), edges: make(map[Edge]int64)}

	for range runs {
		cur := StartBCB
		for steps := 0; ; steps++ {
			f.nodes[cur]++

			succs := graph.Successors(cur)
			if len(succs) == 0 {
				break
			}

			next := succs[rng.Intn(len(succs))]
			f.edges[Edge{From: cur, To: next}]++
			cur = next
		}
	}

	return f
}

// physicalValues fills the counter array the way an instrumented binary
// would after the simulated runs.
func physicalValues(c *Counters, f flow) []int64 {
	values := make([]int64, c.NumCounters())

	for _, nt := range c.NodeTerms() {
		if nt.Term.IsCounter() {
			values[nt.Term.ID] = f.nodes[nt.BCB]
		}
	}

	for _, et := range c.EdgeTerms() {
		if et.Term.IsCounter() {
			values[et.Term.ID] = f.edges[et.Edge]
		}
	}

	return values
}
