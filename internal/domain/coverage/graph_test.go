package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "covmap.dev/pkg/covmap/internal/model"
)

func bcbOf(t *testing.T, g *Graph, bb m.BlockID) BCB {
	t.Helper()

	bcb, ok := g.BCBOf(bb)
	require.True(t, ok, "block %d should be reachable", bb)

	return bcb
}

func TestNewGraph_MergesStraightLineChains(t *testing.T) {
	body := newBody().
		gotoBlock(1).
		gotoBlock(2).
		switchBlock(3, 4).
		returnBlock().
		returnBlock().
		build()

	g := NewGraph(body)

	require.Equal(t, 3, g.NumNodes())
	assert.Equal(t, []m.BlockID{0, 1, 2}, g.Data(StartBCB).Blocks)
	assert.Equal(t, m.BlockID(0), g.Data(StartBCB).Leader())
	assert.Equal(t, m.BlockID(2), g.Data(StartBCB).Last())
	assert.Len(t, g.Successors(StartBCB), 2)
}

func TestNewGraph_EveryBlockInExactlyOneBCB(t *testing.T) {
	bodies := map[string]*m.Body{
		"diamond":      diamondBody(),
		"loop":         loopBody(),
		"nested loop":  nestedLoopBody(),
		"switch":       switchBody(),
		"early":        earlyReturnBody(),
		"entry loop":   entryLoopBody(),
		"shared latch": sharedLatchBody(),
		"chain":        newBody().gotoBlock(1).gotoBlock(2).switchBlock(0, 3).returnBlock().build(),
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			g := NewGraph(body)

			blockPreds := make(map[m.BlockID]int)
			for _, block := range body.Blocks {
				for _, succ := range filteredSuccessors(block.Terminator) {
					blockPreds[succ]++
				}
			}

			seen := make(map[m.BlockID]int)
			for _, bcb := range g.Nodes() {
				for _, bb := range g.Data(bcb).Blocks {
					seen[bb]++
					assert.Equal(t, bcb, bcbOf(t, g, bb))
				}
			}

			for bb := range body.Blocks {
				assert.Equal(t, 1, seen[m.BlockID(bb)], "block %d", bb)
			}

			assert.Equal(t, m.EntryBlock, g.Data(StartBCB).Leader())

			for _, bcb := range g.Nodes() {
				blocks := g.Data(bcb).Blocks

				// Inside a chain each block falls through to the next one,
				// which has no other way in.
				for i := 0; i+1 < len(blocks); i++ {
					assert.Equal(t, []m.BlockID{blocks[i+1]}, filteredSuccessors(body.Blocks[blocks[i]].Terminator))
					assert.Equal(t, 1, blockPreds[blocks[i+1]], "block %d", blocks[i+1])
				}

				// The BCB edges are exactly the block edges leaving the chain.
				want := make(map[BCB]bool)
				for _, succ := range filteredSuccessors(body.Blocks[g.Data(bcb).Last()].Terminator) {
					want[bcbOf(t, g, succ)] = true
				}

				got := make(map[BCB]bool)
				for _, succ := range g.Successors(bcb) {
					got[succ] = true
					assert.Contains(t, g.Predecessors(succ), bcb)
				}

				assert.Equal(t, want, got, "%s", bcb)
				assert.Len(t, g.Successors(bcb), len(got), "%s has duplicate successors", bcb)
			}
		})
	}
}

func TestNewGraph_SkipsUnreachableBlocks(t *testing.T) {
	body := newBody().
		returnBlock().
		gotoBlock(0).
		build()

	g := NewGraph(body)

	assert.Equal(t, 1, g.NumNodes())

	_, ok := g.BCBOf(1)
	assert.False(t, ok)

	_, ok = g.BCBOf(42)
	assert.False(t, ok)
}

func TestNewGraph_FalseEdgeKeepsFirstTarget(t *testing.T) {
	body := newBody().
		add(m.TerminatorFalseEdge, 1, 2).
		returnBlock().
		returnBlock().
		build()

	g := NewGraph(body)

	assert.Equal(t, 1, g.NumNodes())
	assert.Equal(t, []m.BlockID{0, 1}, g.Data(StartBCB).Blocks)

	_, ok := g.BCBOf(2)
	assert.False(t, ok)
}

func TestNewGraph_DeduplicatesSuccessors(t *testing.T) {
	body := newBody().
		switchBlock(1, 1, 2).
		returnBlock().
		returnBlock().
		build()

	g := NewGraph(body)

	assert.Equal(t, []BCB{bcbOf(t, g, 1), bcbOf(t, g, 2)}, g.Successors(StartBCB))
	assert.False(t, g.HasMultipleInEdges(bcbOf(t, g, 1)))
}

func TestNewGraph_EmptyBody(t *testing.T) {
	g := NewGraph(&m.Body{})

	assert.Equal(t, 0, g.NumNodes())
	assert.Empty(t, g.Nodes())
}

func TestDominators_Diamond(t *testing.T) {
	g := NewGraph(diamondBody())

	then, els, merge := bcbOf(t, g, 1), bcbOf(t, g, 2), bcbOf(t, g, 3)

	for _, bcb := range g.Nodes() {
		assert.True(t, g.Dominates(StartBCB, bcb))
		assert.True(t, g.Dominates(bcb, bcb))
	}

	assert.False(t, g.Dominates(then, merge))
	assert.False(t, g.Dominates(els, merge))
	assert.False(t, g.Dominates(merge, then))
	assert.Equal(t, StartBCB, g.dominators.ImmediateDominator(merge))
	assert.Less(t, g.Rank(StartBCB), g.Rank(merge))
}

func TestDominators_Loop(t *testing.T) {
	g := NewGraph(loopBody())

	header, latch, exit := bcbOf(t, g, 1), bcbOf(t, g, 2), bcbOf(t, g, 3)

	assert.True(t, g.Dominates(header, latch))
	assert.True(t, g.Dominates(header, exit))
	assert.False(t, g.Dominates(latch, header))
	assert.True(t, g.HasMultipleInEdges(header))
	assert.Equal(t, header, g.dominators.ImmediateDominator(latch))
}

func TestDominators_SharedLatch(t *testing.T) {
	g := NewGraph(sharedLatchBody())

	header, inner, branch, latch := bcbOf(t, g, 2), bcbOf(t, g, 1), bcbOf(t, g, 4), bcbOf(t, g, 3)

	assert.Equal(t, header, g.dominators.ImmediateDominator(latch))
	assert.Equal(t, inner, g.dominators.ImmediateDominator(branch))
	assert.Equal(t, inner, g.dominators.ImmediateDominator(bcbOf(t, g, 5)))
	assert.False(t, g.Dominates(branch, latch))

	for _, bcb := range g.Nodes() {
		if bcb != StartBCB {
			assert.Less(t, g.Rank(g.dominators.ImmediateDominator(bcb)), g.Rank(bcb), "%s", bcb)
		}
	}
}

func TestDominators_SelfLoop(t *testing.T) {
	g := NewGraph(newBody().gotoBlock(1).switchBlock(1, 2).returnBlock().build())

	spin, exit := bcbOf(t, g, 1), bcbOf(t, g, 2)

	assert.Contains(t, g.Successors(spin), spin)
	assert.Equal(t, StartBCB, g.dominators.ImmediateDominator(spin))
	assert.Equal(t, spin, g.dominators.ImmediateDominator(exit))
	assert.True(t, g.Dominates(spin, exit))
}

func TestGraph_EntryCountsTheCallAsAnInEdge(t *testing.T) {
	assert.False(t, NewGraph(diamondBody()).HasMultipleInEdges(StartBCB))

	g := NewGraph(entryLoopBody())

	require.Len(t, g.Predecessors(StartBCB), 2)
	assert.True(t, g.HasMultipleInEdges(StartBCB))
	assert.False(t, g.HasMultipleInEdges(bcbOf(t, g, 1)))
}

func TestLoopTraversal_VisitsLoopBodyBeforeExit(t *testing.T) {
	g := NewGraph(nestedLoopBody())
	traversal := newLoopTraversal(g)

	var order []BCB

	for {
		bcb, ok := traversal.next()
		if !ok {
			break
		}

		order = append(order, bcb)
	}

	require.True(t, traversal.isComplete())
	require.Len(t, order, g.NumNodes())

	pos := make(map[BCB]int)
	for i, bcb := range order {
		pos[bcb] = i
	}

	exit := bcbOf(t, g, 7)
	for _, bb := range []m.BlockID{1, 2, 3, 4, 5, 6} {
		assert.Less(t, pos[bcbOf(t, g, bb)], pos[exit], "block %d", bb)
	}

	assert.Equal(t, []BCB{bcbOf(t, g, 6)}, traversal.backedges[bcbOf(t, g, 1)])
	assert.Equal(t, []BCB{bcbOf(t, g, 5)}, traversal.backedges[bcbOf(t, g, 3)])
}
