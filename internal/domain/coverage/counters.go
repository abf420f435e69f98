package coverage

import (
	"log/slog"
	"slices"

	m "covmap.dev/pkg/covmap/internal/model"
)

// Edge is a directed edge of the coverage graph.
type Edge struct {
	From BCB
	To   BCB
}

// NodeTerm pairs a BCB with its counting term.
type NodeTerm struct {
	BCB  BCB
	Term m.Term
}

// EdgeTerm pairs a graph edge with its counting term.
type EdgeTerm struct {
	Edge
	Term m.Term
}

// Options tunes counter assignment.
type Options struct {
	// MaxResolutionDepth bounds how many nodes may be resolved through sums
	// of in-edges at once before falling back to a physical counter.
	// Zero means no bound.
	MaxResolutionDepth int
}

// Counters is the result of counter assignment for one graph.
type Counters struct {
	numCounters uint32
	expressions []m.Expression
	nodeTerms   []m.Term
	hasNodeTerm []bool
	edgeTerms   map[Edge]m.Term
	edgeOrder   []Edge
}

func newCounters(numNodes int) *Counters {
	return &Counters{
		nodeTerms:   make([]m.Term, numNodes),
		hasNodeTerm: make([]bool, numNodes),
		edgeTerms:   make(map[Edge]m.Term),
	}
}

func (c *Counters) makeCounter() m.Term {
	id := c.numCounters
	c.numCounters++

	return m.CounterTerm(id)
}

func (c *Counters) makeExpression(lhs m.Term, op m.Op, rhs m.Term) m.Term {
	id := uint32(len(c.expressions))
	c.expressions = append(c.expressions, m.Expression{ID: id, LHS: lhs, Op: op, RHS: rhs})

	return m.ExpressionTerm(id)
}

func (c *Counters) setNodeTerm(bcb BCB, term m.Term) m.Term {
	c.nodeTerms[bcb] = term
	c.hasNodeTerm[bcb] = true

	return term
}

func (c *Counters) setEdgeTerm(edge Edge, term m.Term) m.Term {
	if _, ok := c.edgeTerms[edge]; !ok {
		c.edgeOrder = append(c.edgeOrder, edge)
	}

	c.edgeTerms[edge] = term

	return term
}

// NumCounters is the number of physical counters allocated.
func (c *Counters) NumCounters() uint32 {
	return c.numCounters
}

// Expressions returns the expressions in definition order. Every operand
// refers to a counter or to an expression defined earlier in the list.
func (c *Counters) Expressions() []m.Expression {
	return slices.Clone(c.expressions)
}

// NodeTerm returns the term assigned to bcb.
func (c *Counters) NodeTerm(bcb BCB) (m.Term, bool) {
	if int(bcb) >= len(c.nodeTerms) || bcb < 0 {
		return m.Term{}, false
	}

	return c.nodeTerms[bcb], c.hasNodeTerm[bcb]
}

// EdgeTerm returns the term assigned to an edge.
func (c *Counters) EdgeTerm(from, to BCB) (m.Term, bool) {
	term, ok := c.edgeTerms[Edge{From: from, To: to}]

	return term, ok
}

// NodeTerms lists the nodes that have a term, in BCB order.
func (c *Counters) NodeTerms() []NodeTerm {
	var out []NodeTerm

	for i, ok := range c.hasNodeTerm {
		if ok {
			out = append(out, NodeTerm{BCB: BCB(i), Term: c.nodeTerms[i]})
		}
	}

	return out
}

// EdgeTerms lists the edges that have a term, in assignment order.
func (c *Counters) EdgeTerms() []EdgeTerm {
	out := make([]EdgeTerm, 0, len(c.edgeOrder))
	for _, edge := range c.edgeOrder {
		out = append(out, EdgeTerm{Edge: edge, Term: c.edgeTerms[edge]})
	}

	return out
}

// MakeCounters gives a term to every BCB for which hasMappings is true, and
// to whatever other nodes and edges those terms are derived from.
func MakeCounters(graph *Graph, hasMappings func(BCB) bool, opts Options) *Counters {
	b := &counterBuilder{
		graph:    graph,
		counters: newCounters(graph.NumNodes()),
		visiting: make([]bool, graph.NumNodes()),
		opts:     opts,
	}

	traversal := newLoopTraversal(graph)
	for {
		bcb, ok := traversal.next()
		if !ok {
			break
		}

		if hasMappings(bcb) {
			b.makeNodeAndBranchCounters(traversal, bcb)
		}
	}

	if !traversal.isComplete() {
		slog.Warn("coverage traversal did not visit every node", "nodes", graph.NumNodes())
	}

	return b.counters
}

type counterBuilder struct {
	graph    *Graph
	counters *Counters
	visiting []bool
	opts     Options
}

func (b *counterBuilder) makeNodeAndBranchCounters(traversal *loopTraversal, from BCB) {
	b.nodeOperand(from)

	if !b.needsBranchCounters(from) {
		return
	}

	successors := b.graph.Successors(from)

	var candidates []BCB

	for _, to := range successors {
		if b.edgeHasNoTerm(from, to) {
			candidates = append(candidates, to)
		}
	}

	exprTo, ok := b.choosePreferredExpressionBranch(traversal, candidates)
	if !ok {
		return
	}

	var others []m.Term

	for _, to := range successors {
		if to == exprTo {
			continue
		}

		others = append(others, b.edgeOperand(from, to))
	}

	if len(others) == 0 || !b.edgeHasNoTerm(from, exprTo) {
		return
	}

	expr := b.counters.makeExpression(b.nodeOperand(from), m.OpSubtract, b.sum(others))

	if b.graph.HasMultipleInEdges(exprTo) {
		b.counters.setEdgeTerm(Edge{From: from, To: exprTo}, expr)
	} else {
		b.counters.setNodeTerm(exprTo, expr)
	}
}

func (b *counterBuilder) needsBranchCounters(bcb BCB) bool {
	successors := b.graph.Successors(bcb)
	if len(successors) < 2 {
		return false
	}

	for _, to := range successors {
		if b.edgeHasNoTerm(bcb, to) {
			return true
		}
	}

	return false
}

func (b *counterBuilder) edgeHasNoTerm(from, to BCB) bool {
	if b.graph.HasMultipleInEdges(to) {
		_, ok := b.counters.EdgeTerm(from, to)
		return !ok
	}

	_, ok := b.counters.NodeTerm(to)

	return !ok
}

// choosePreferredExpressionBranch picks the out-edge that will be computed
// from its siblings. An edge that stays inside the innermost enclosing loop
// is preferred, so that the loop exit is the one counted directly.
func (b *counterBuilder) choosePreferredExpressionBranch(traversal *loopTraversal, candidates []BCB) (BCB, bool) {
	if len(candidates) == 0 {
		return noBCB, false
	}

	for _, reloopBCBs := range traversal.reloopBCBsPerLoop() {
		for _, target := range candidates {
			for _, reloop := range reloopBCBs {
				if b.graph.Dominates(target, reloop) {
					return target, true
				}
			}
		}
	}

	return candidates[0], true
}

func (b *counterBuilder) sum(terms []m.Term) m.Term {
	acc := terms[0]
	for _, term := range terms[1:] {
		acc = b.counters.makeExpression(acc, m.OpAdd, term)
	}

	return acc
}

// edgeOperand returns a term counting the traversals of from->to.
func (b *counterBuilder) edgeOperand(from, to BCB) m.Term {
	if !b.graph.HasMultipleInEdges(to) {
		return b.nodeOperand(to)
	}

	if len(b.graph.Successors(from)) == 1 {
		return b.nodeOperand(from)
	}

	return b.edgeCounter(from, to)
}

// edgeCounter returns the physical counter of an edge, allocating it if
// needed.
func (b *counterBuilder) edgeCounter(from, to BCB) m.Term {
	if term, ok := b.counters.EdgeTerm(from, to); ok {
		return term
	}

	return b.counters.setEdgeTerm(Edge{From: from, To: to}, b.counters.makeCounter())
}

// immediateNodeTerm resolves bcb without looking at its in-edges, or
// reports that a sum over the in-edges is needed.
func (b *counterBuilder) immediateNodeTerm(bcb BCB, depth int) (m.Term, bool) {
	if term, ok := b.counters.NodeTerm(bcb); ok {
		return term, true
	}

	preds := b.graph.Predecessors(bcb)
	tooDeep := b.opts.MaxResolutionDepth > 0 && depth >= b.opts.MaxResolutionDepth

	// The start node's in-edges miss the entry from the caller, so its count
	// cannot be summed from them. A node already on the resolution stack is
	// being reached through a cycle; count it directly instead of waiting for
	// itself.
	if bcb == StartBCB || len(preds) <= 1 || slices.Contains(preds, bcb) || b.visiting[bcb] || tooDeep {
		return b.counters.setNodeTerm(bcb, b.counters.makeCounter()), true
	}

	return m.Term{}, false
}

// operand is an in-edge contribution waiting to be summed. Edge counters are
// allocated only when the sum is actually built.
type operand struct {
	term     m.Term
	edgeFrom BCB
	isEdge   bool
}

type resolveFrame struct {
	bcb      BCB
	preds    []BCB
	next     int
	operands []operand
}

// nodeOperand returns the term of bcb, building it from its in-edges when it
// has several. Resolution uses an explicit stack.
func (b *counterBuilder) nodeOperand(root BCB) m.Term {
	if term, ok := b.immediateNodeTerm(root, 0); ok {
		return term
	}

	stack := []*resolveFrame{b.pushFrame(root)}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.preds) {
			pred := top.preds[top.next]

			if len(b.graph.Successors(pred)) != 1 {
				top.operands = append(top.operands, operand{edgeFrom: pred, isEdge: true})
				top.next++

				continue
			}

			// The edge carries all of pred's flow.
			term, ok := b.immediateNodeTerm(pred, len(stack))
			if !ok {
				stack = append(stack, b.pushFrame(pred))
				continue
			}

			top.operands = append(top.operands, operand{term: term})
			top.next++

			continue
		}

		stack = stack[:len(stack)-1]
		b.visiting[top.bcb] = false

		if _, done := b.counters.NodeTerm(top.bcb); done {
			continue
		}

		terms := make([]m.Term, 0, len(top.operands))
		for _, op := range top.operands {
			if op.isEdge {
				terms = append(terms, b.edgeCounter(op.edgeFrom, top.bcb))
			} else {
				terms = append(terms, op.term)
			}
		}

		b.counters.setNodeTerm(top.bcb, b.sum(terms))
	}

	term, _ := b.counters.NodeTerm(root)

	return term
}

func (b *counterBuilder) pushFrame(bcb BCB) *resolveFrame {
	b.visiting[bcb] = true

	return &resolveFrame{bcb: bcb, preds: b.graph.Predecessors(bcb)}
}
