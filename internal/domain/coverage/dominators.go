package coverage

import (
	gflow "gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// Dominators holds the immediate-dominator tree of a coverage graph rooted
// at StartBCB.
type Dominators struct {
	idom []BCB
	rank []int
}

// computeDominators builds the dominator tree with gonum's Lengauer-Tarjan
// implementation. Ranks come from a reverse postorder that follows successor
// order, so they stay stable across runs.
func computeDominators(successors [][]BCB) *Dominators {
	n := len(successors)
	d := &Dominators{
		idom: make([]BCB, n),
		rank: make([]int, n),
	}

	if n == 0 {
		return d
	}

	g := simple.NewDirectedGraph()
	for bcb := range successors {
		g.AddNode(simple.Node(bcb))
	}

	for from, succs := range successors {
		for _, to := range succs {
			// Self loops never change dominance and simple graphs reject them.
			if BCB(from) == to {
				continue
			}

			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	tree := gflow.Dominators(simple.Node(StartBCB), g)

	for i := range d.idom {
		d.idom[i] = noBCB
		if dom := tree.DominatorOf(int64(i)); dom != nil {
			d.idom[i] = BCB(dom.ID())
		}
	}

	d.idom[StartBCB] = StartBCB

	for i := range d.rank {
		d.rank[i] = n
	}

	for i, bcb := range reversePostorder(successors) {
		d.rank[bcb] = i
	}

	return d
}

// reversePostorder numbers the nodes reachable from StartBCB.
func reversePostorder(successors [][]BCB) []BCB {
	type frame struct {
		bcb  BCB
		next int
	}

	visited := make([]bool, len(successors))
	post := make([]BCB, 0, len(successors))
	stack := []frame{{bcb: StartBCB}}
	visited[StartBCB] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(successors[top.bcb]) {
			succ := successors[top.bcb][top.next]
			top.next++

			if !visited[succ] {
				visited[succ] = true
				stack = append(stack, frame{bcb: succ})
			}

			continue
		}

		post = append(post, top.bcb)
		stack = stack[:len(stack)-1]
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}

	return post
}

// ImmediateDominator returns the closest strict dominator of bcb. The start
// node is its own immediate dominator.
func (d *Dominators) ImmediateDominator(bcb BCB) BCB {
	return d.idom[bcb]
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (d *Dominators) Dominates(a, b BCB) bool {
	for {
		if a == b {
			return true
		}

		next := d.idom[b]
		if next == b || next == noBCB {
			return false
		}

		b = next
	}
}

// Rank is the reverse-postorder index of bcb.
func (d *Dominators) Rank(bcb BCB) int {
	return d.rank[bcb]
}
