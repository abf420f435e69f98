package coverage

// traversalContext is the worklist of one loop (or of the whole function when
// loopHeader is noBCB).
type traversalContext struct {
	loopHeader BCB
	worklist   []BCB
}

// loopTraversal visits every node reachable from StartBCB, finishing the body
// of a loop before moving on to the nodes after it.
type loopTraversal struct {
	graph        *Graph
	backedges    [][]BCB
	contextStack []traversalContext
	visited      []bool
}

func newLoopTraversal(graph *Graph) *loopTraversal {
	t := &loopTraversal{
		graph:     graph,
		backedges: findLoopBackedges(graph),
		visited:   make([]bool, graph.NumNodes()),
	}

	if graph.NumNodes() > 0 {
		t.contextStack = []traversalContext{{loopHeader: noBCB, worklist: []BCB{StartBCB}}}
	}

	return t
}

// findLoopBackedges maps every loop header to the sources of its back edges.
func findLoopBackedges(graph *Graph) [][]BCB {
	backedges := make([][]BCB, graph.NumNodes())

	for _, bcb := range graph.Nodes() {
		for _, succ := range graph.Successors(bcb) {
			if graph.Dominates(succ, bcb) {
				backedges[succ] = append(backedges[succ], bcb)
			}
		}
	}

	return backedges
}

func (t *loopTraversal) next() (BCB, bool) {
	for len(t.contextStack) > 0 {
		ctx := &t.contextStack[len(t.contextStack)-1]
		if len(ctx.worklist) == 0 {
			t.contextStack = t.contextStack[:len(t.contextStack)-1]
			continue
		}

		bcb := ctx.worklist[0]
		ctx.worklist = ctx.worklist[1:]

		if t.visited[bcb] {
			continue
		}

		t.visited[bcb] = true

		if len(t.backedges[bcb]) > 0 {
			t.contextStack = append(t.contextStack, traversalContext{loopHeader: bcb})
		}

		t.addSuccessorsToWorklists(bcb)

		return bcb, true
	}

	return noBCB, false
}

func (t *loopTraversal) addSuccessorsToWorklists(bcb BCB) {
	successors := t.graph.Successors(bcb)

	for _, succ := range successors {
		if succ == bcb {
			continue
		}

		// A successor belongs to the innermost loop whose header dominates it;
		// loop exits land in an outer worklist.
		ctx := &t.contextStack[0]

		for i := len(t.contextStack) - 1; i >= 0; i-- {
			header := t.contextStack[i].loopHeader
			if header == noBCB || t.graph.Dominates(header, succ) {
				ctx = &t.contextStack[i]
				break
			}
		}

		// Branching nodes are handled before straight-line ones so that the
		// branch decides which of its successors gets an expression.
		if len(successors) > 1 {
			ctx.worklist = append(ctx.worklist, succ)
		} else {
			ctx.worklist = append([]BCB{succ}, ctx.worklist...)
		}
	}
}

// reloopBCBsPerLoop yields, innermost loop first, the back-edge sources of
// each loop enclosing the current position.
func (t *loopTraversal) reloopBCBsPerLoop() [][]BCB {
	var out [][]BCB

	for i := len(t.contextStack) - 1; i >= 0; i-- {
		header := t.contextStack[i].loopHeader
		if header == noBCB {
			continue
		}

		out = append(out, t.backedges[header])
	}

	return out
}

func (t *loopTraversal) isComplete() bool {
	for _, seen := range t.visited {
		if !seen {
			return false
		}
	}

	return true
}
