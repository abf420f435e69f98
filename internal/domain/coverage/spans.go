package coverage

import (
	"cmp"
	"slices"

	m "covmap.dev/pkg/covmap/internal/model"
)

// SpanMapping attributes a source span to a BCB.
type SpanMapping struct {
	BCB  BCB
	Span m.Span
}

// Spans holds the refined span mappings of one function.
type Spans struct {
	mappings    []SpanMapping
	hasMappings []bool
}

// Mappings returns the mappings sorted by span start, then end, then BCB.
func (s *Spans) Mappings() []SpanMapping {
	return s.mappings
}

// Len returns the number of mappings.
func (s *Spans) Len() int {
	return len(s.mappings)
}

// HasMappings reports whether at least one span was attributed to bcb.
func (s *Spans) HasMappings(bcb BCB) bool {
	return int(bcb) < len(s.hasMappings) && bcb >= 0 && s.hasMappings[bcb]
}

type covspan struct {
	bcb  BCB
	span m.Span
}

// ExtractSpans collects the user-visible spans of every BCB and refines them
// so that each source byte is attributed to the most specific block.
func ExtractSpans(body *m.Body, graph *Graph) *Spans {
	candidates, holes := initialSpans(body, graph)

	slices.SortStableFunc(candidates, func(a, b covspan) int {
		return compareCovspans(graph, a, b)
	})

	slices.SortFunc(holes, func(a, b m.Span) int {
		return cmp.Compare(a.Lo, b.Lo)
	})

	refined := refineSortedSpans(graph, candidates)

	out := &Spans{hasMappings: make([]bool, graph.NumNodes())}
	seen := make(map[SpanMapping]struct{})

	for _, r := range refined {
		for _, piece := range carveHoles(r.span, holes) {
			mapping := SpanMapping{BCB: r.bcb, Span: piece}
			if _, dup := seen[mapping]; dup {
				continue
			}

			seen[mapping] = struct{}{}
			out.mappings = append(out.mappings, mapping)
			out.hasMappings[r.bcb] = true
		}
	}

	slices.SortStableFunc(out.mappings, func(a, b SpanMapping) int {
		return cmp.Or(
			cmp.Compare(a.Span.Lo, b.Span.Lo),
			cmp.Compare(a.Span.Hi, b.Span.Hi),
			cmp.Compare(a.BCB, b.BCB),
		)
	})

	return out
}

func initialSpans(body *m.Body, graph *Graph) ([]covspan, []m.Span) {
	var (
		candidates []covspan
		holes      []m.Span
	)

	inBody := func(span m.Span) bool {
		return span.IsValid() && body.Span.Contains(span)
	}

	if body.SigSpan.IsValid() && !body.SigSpan.IsEmpty() && graph.NumNodes() > 0 {
		candidates = append(candidates, covspan{bcb: StartBCB, span: body.SigSpan})
	}

	for _, bcb := range graph.Nodes() {
		for _, bb := range graph.Data(bcb).Blocks {
			block := body.Blocks[bb]

			for _, stmt := range block.Statements {
				span, ok := statementSpan(stmt)
				if !ok || !inBody(span) {
					continue
				}

				if stmt.Kind == m.StatementClosure {
					holes = append(holes, span)
					continue
				}

				candidates = append(candidates, covspan{bcb: bcb, span: span})
			}

			if span, ok := terminatorSpan(block.Terminator); ok && inBody(span) {
				candidates = append(candidates, covspan{bcb: bcb, span: span})
			}
		}
	}

	return candidates, holes
}

func statementSpan(stmt m.Statement) (m.Span, bool) {
	switch stmt.Kind {
	case m.StatementNop, m.StatementStorage, m.StatementSynthetic, m.StatementCoverage:
		return m.NoSpan, false
	case m.StatementAssign, m.StatementEval, m.StatementDecl, m.StatementClosure:
	}

	return stmt.Span, stmt.Span.IsValid()
}

// terminatorSpan keeps only terminators whose span stands for code that
// actually runs. Branch conditions are attributed through the statement that
// evaluates them.
func terminatorSpan(term m.Terminator) (m.Span, bool) {
	switch term.Kind {
	case m.TerminatorReturn, m.TerminatorPanic:
		return term.Span, term.Span.IsValid()
	case m.TerminatorGoto, m.TerminatorSwitch, m.TerminatorUnreachable, m.TerminatorFalseEdge:
	}

	return m.NoSpan, false
}

// compareCovspans sorts by start, then longest first, then dominators before
// the nodes they dominate.
func compareCovspans(graph *Graph, a, b covspan) int {
	return cmp.Or(
		cmp.Compare(a.span.Lo, b.span.Lo),
		cmp.Compare(b.span.Hi, a.span.Hi),
		cmp.Compare(graph.Rank(a.bcb), graph.Rank(b.bcb)),
		cmp.Compare(a.bcb, b.bcb),
	)
}

type refinedSpan struct {
	bcb    BCB
	span   m.Span
	merged []m.Span
}

func newRefinedSpan(c covspan) *refinedSpan {
	return &refinedSpan{bcb: c.bcb, span: c.span, merged: []m.Span{c.span}}
}

func (r *refinedSpan) mergeFrom(c covspan) {
	r.span = r.span.Union(c.span)
	r.merged = append(r.merged, c.span)
}

// cutoff keeps only the part of r that starts before pos. It returns nil
// when nothing is left.
func (r *refinedSpan) cutoff(pos m.Pos) *refinedSpan {
	var kept []m.Span

	for _, span := range r.merged {
		switch {
		case span.Hi <= pos:
			kept = append(kept, span)
		case span.Lo < pos:
			kept = append(kept, span.WithHi(pos))
		}
	}

	if len(kept) == 0 {
		return nil
	}

	out := &refinedSpan{bcb: r.bcb, span: kept[0], merged: kept}
	for _, span := range kept[1:] {
		out.span = out.span.Union(span)
	}

	return out
}

// refineSortedSpans sweeps the sorted candidates once. Consecutive spans of
// one BCB merge; when a span of another BCB starts inside the current one,
// the current one is cut at that point so the inner, more specific span wins.
// Identical spans of two BCBs go to the dominated one.
func refineSortedSpans(graph *Graph, sorted []covspan) []*refinedSpan {
	var (
		out          []*refinedSpan
		prev         *refinedSpan
		prevOriginal m.Span
		pendingDups  []*refinedSpan
	)

	emit := func(r *refinedSpan) {
		if r != nil {
			out = append(out, r)
		}
	}

	for _, curr := range sorted {
		switch {
		case prev == nil:
			prev = newRefinedSpan(curr)

		case curr.bcb == prev.bcb && len(pendingDups) == 0:
			prev.mergeFrom(curr)

		case prev.span.Hi <= curr.span.Lo:
			for _, dup := range pendingDups {
				emit(dup)
			}

			pendingDups = nil

			emit(prev)
			prev = newRefinedSpan(curr)

		case curr.span == prevOriginal:
			pendingDups = slices.DeleteFunc(pendingDups, func(dup *refinedSpan) bool {
				return graph.Dominates(dup.bcb, curr.bcb)
			})

			if graph.Dominates(prev.bcb, curr.bcb) {
				emit(prev.cutoff(curr.span.Lo))
			} else {
				pendingDups = append(pendingDups, prev)
			}

			prev = newRefinedSpan(curr)

		default:
			for _, dup := range pendingDups {
				emit(dup.cutoff(curr.span.Lo))
			}

			pendingDups = nil

			emit(prev.cutoff(curr.span.Lo))
			prev = newRefinedSpan(curr)
		}

		prevOriginal = curr.span
	}

	for _, dup := range pendingDups {
		emit(dup)
	}

	emit(prev)

	return out
}

// carveHoles removes the parts of span covered by holes. holes must be
// sorted by start.
func carveHoles(span m.Span, holes []m.Span) []m.Span {
	pieces := []m.Span{span}

	for _, hole := range holes {
		if hole.Lo >= span.Hi && !span.IsEmpty() {
			break
		}

		next := pieces[:0:0]

		for _, piece := range pieces {
			switch {
			case piece.IsEmpty():
				if hole.Lo < piece.Lo && piece.Lo < hole.Hi {
					continue
				}

				next = append(next, piece)

			case !piece.Overlaps(hole):
				next = append(next, piece)

			default:
				if piece.Lo < hole.Lo {
					next = append(next, piece.WithHi(hole.Lo))
				}

				if hole.Hi < piece.Hi {
					next = append(next, piece.WithLo(hole.Hi))
				}
			}
		}

		pieces = next
	}

	return pieces
}
