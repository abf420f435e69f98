// Package coverage condenses a function's control-flow graph into basic
// coverage blocks, attributes source spans to them and decides which blocks
// and edges need physical counters.
package coverage

import (
	"fmt"

	m "covmap.dev/pkg/covmap/internal/model"
)

// BCB indexes the basic coverage blocks of a Graph.
type BCB int

// StartBCB always holds the entry block.
const StartBCB BCB = 0

const noBCB BCB = -1

func (b BCB) String() string {
	return fmt.Sprintf("bcb%d", int(b))
}

// BCBData lists the original blocks of one basic coverage block, in
// execution order.
type BCBData struct {
	Blocks []m.BlockID
}

// Leader is the first block of the chain.
func (d BCBData) Leader() m.BlockID {
	return d.Blocks[0]
}

// Last is the block whose terminator leaves the chain.
func (d BCBData) Last() m.BlockID {
	return d.Blocks[len(d.Blocks)-1]
}

// Graph is the condensed coverage graph of one body. It is read-only once
// built.
type Graph struct {
	bcbs         []BCBData
	bbToBCB      []BCB
	successors   [][]BCB
	predecessors [][]BCB
	dominators   *Dominators
}

// filteredSuccessors returns the successor slots that matter for coverage.
// Only the first target of a false edge is ever taken.
func filteredSuccessors(term m.Terminator) []m.BlockID {
	if term.Kind == m.TerminatorFalseEdge && len(term.Targets) > 1 {
		return term.Targets[:1]
	}

	return term.Targets
}

// NewGraph condenses the blocks reachable from the entry of body.
func NewGraph(body *m.Body) *Graph {
	order := reachablePreorder(body)

	preds := make([][]m.BlockID, len(body.Blocks))
	for _, bb := range order {
		for _, succ := range filteredSuccessors(body.Blocks[bb].Terminator) {
			preds[succ] = append(preds[succ], bb)
		}
	}

	// A block joins its predecessor's chain when the edge between them is the
	// only way out of one and the only way into the other.
	mergeable := func(bb m.BlockID) bool {
		if bb == m.EntryBlock || len(preds[bb]) != 1 {
			return false
		}

		return len(filteredSuccessors(body.Blocks[preds[bb][0]].Terminator)) == 1
	}

	g := &Graph{bbToBCB: make([]BCB, len(body.Blocks))}
	for i := range g.bbToBCB {
		g.bbToBCB[i] = noBCB
	}

	for _, bb := range order {
		if mergeable(bb) {
			continue
		}

		bcb := BCB(len(g.bcbs))
		chain := []m.BlockID{bb}
		g.bbToBCB[bb] = bcb

		for cur := bb; ; {
			succs := filteredSuccessors(body.Blocks[cur].Terminator)
			if len(succs) != 1 || !mergeable(succs[0]) || g.bbToBCB[succs[0]] != noBCB {
				break
			}

			cur = succs[0]
			g.bbToBCB[cur] = bcb
			chain = append(chain, cur)
		}

		g.bcbs = append(g.bcbs, BCBData{Blocks: chain})
	}

	g.successors = make([][]BCB, len(g.bcbs))
	g.predecessors = make([][]BCB, len(g.bcbs))

	for bcb, data := range g.bcbs {
		seen := make(map[BCB]struct{})

		for _, succ := range filteredSuccessors(body.Blocks[data.Last()].Terminator) {
			target := g.bbToBCB[succ]
			if target == noBCB {
				continue
			}

			if _, dup := seen[target]; dup {
				continue
			}

			seen[target] = struct{}{}
			g.successors[bcb] = append(g.successors[bcb], target)
			g.predecessors[target] = append(g.predecessors[target], BCB(bcb))
		}
	}

	g.dominators = computeDominators(g.successors)

	return g
}

// reachablePreorder lists the blocks reachable from the entry in depth-first
// preorder, visiting successor slots in order.
func reachablePreorder(body *m.Body) []m.BlockID {
	if len(body.Blocks) == 0 {
		return nil
	}

	visited := make([]bool, len(body.Blocks))
	order := make([]m.BlockID, 0, len(body.Blocks))
	stack := []m.BlockID{m.EntryBlock}

	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[bb] {
			continue
		}

		visited[bb] = true
		order = append(order, bb)

		succs := filteredSuccessors(body.Blocks[bb].Terminator)
		for i := len(succs) - 1; i >= 0; i-- {
			if !visited[succs[i]] {
				stack = append(stack, succs[i])
			}
		}
	}

	return order
}

// NumNodes returns the number of basic coverage blocks.
func (g *Graph) NumNodes() int {
	return len(g.bcbs)
}

// Nodes returns every BCB in index order.
func (g *Graph) Nodes() []BCB {
	nodes := make([]BCB, len(g.bcbs))
	for i := range nodes {
		nodes[i] = BCB(i)
	}

	return nodes
}

// Data returns the blocks of bcb.
func (g *Graph) Data(bcb BCB) BCBData {
	return g.bcbs[bcb]
}

// BCBOf returns the BCB holding bb, or false for unreachable blocks.
func (g *Graph) BCBOf(bb m.BlockID) (BCB, bool) {
	if int(bb) >= len(g.bbToBCB) {
		return noBCB, false
	}

	bcb := g.bbToBCB[bb]

	return bcb, bcb != noBCB
}

// Successors returns the distinct successors of bcb.
func (g *Graph) Successors(bcb BCB) []BCB {
	return g.successors[bcb]
}

// Predecessors returns the distinct predecessors of bcb.
func (g *Graph) Predecessors(bcb BCB) []BCB {
	return g.predecessors[bcb]
}

// HasMultipleInEdges reports whether more than one edge enters bcb. The
// start node is also entered by the call itself, so any back edge into it
// makes a second in-edge.
func (g *Graph) HasMultipleInEdges(bcb BCB) bool {
	preds := len(g.predecessors[bcb])
	if bcb == StartBCB {
		return preds > 0
	}

	return preds > 1
}

// Dominates reports whether every path from the start to b goes through a.
func (g *Graph) Dominates(a, b BCB) bool {
	return g.dominators.Dominates(a, b)
}

// Rank orders nodes so that a dominator always ranks before the nodes it
// dominates.
func (g *Graph) Rank(bcb BCB) int {
	return g.dominators.Rank(bcb)
}
