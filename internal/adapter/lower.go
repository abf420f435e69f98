package adapter

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/cfg"

	m "covmap.dev/pkg/covmap/internal/model"
)

const (
	rangeKeyword = len("range")
	braceWidth   = len("}")
)

// noReturnCalls are the package-qualified calls that never return.
var noReturnCalls = map[string]bool{
	"os.Exit":        true,
	"log.Fatal":      true,
	"log.Fatalf":     true,
	"log.Fatalln":    true,
	"log.Panic":      true,
	"log.Panicf":     true,
	"log.Panicln":    true,
	"runtime.Goexit": true,
}

// mayReturn reports whether a call can return normally. Without type
// information only panic and a few well-known standard library calls are
// recognised.
func mayReturn(call *ast.CallExpr) bool {
	switch fn := ast.Unparen(call.Fun).(type) {
	case *ast.Ident:
		return fn.Name != "panic"
	case *ast.SelectorExpr:
		pkg, ok := fn.X.(*ast.Ident)
		if !ok {
			return true
		}

		return !noReturnCalls[pkg.Name+"."+fn.Sel.Name]
	}

	return true
}

func nodeSpan(n ast.Node) m.Span {
	return m.SpanOf(m.Pos(n.Pos()), m.Pos(n.End()))
}

// lowered is a function body in the planner's CFG model together with the
// function literals found directly inside it.
type lowered struct {
	body     *m.Body
	closures []*ast.FuncLit
}

type lowerer struct {
	block *ast.BlockStmt
	// rangeHeads maps the last node evaluated before a range loop to the loop.
	rangeHeads map[ast.Node]*ast.RangeStmt
	closures   []*ast.FuncLit
}

// lowerBody builds the CFG of one function body. sigStart is the position
// of the func keyword, or token.NoPos.
func lowerBody(sigStart token.Pos, block *ast.BlockStmt) lowered {
	l := &lowerer{block: block, rangeHeads: make(map[ast.Node]*ast.RangeStmt)}
	l.indexRangeStmts()

	graph := cfg.New(block, mayReturn)

	body := &m.Body{
		Span:    m.SpanOf(m.Pos(block.Lbrace), m.Pos(block.Rbrace)+m.Pos(braceWidth)),
		SigSpan: m.NoSpan,
		Blocks:  make([]m.Block, len(graph.Blocks)),
	}

	if sigStart.IsValid() && sigStart < block.Lbrace {
		body.SigSpan = m.SpanOf(m.Pos(sigStart), m.Pos(block.Lbrace))
	}

	for _, b := range graph.Blocks {
		body.Blocks[b.Index] = l.lowerBlock(b)
	}

	for _, b := range graph.Blocks {
		l.markRangeHeader(body, b)
	}

	return lowered{body: body, closures: l.closures}
}

// indexRangeStmts records, for every range loop of the body, the node that
// go/cfg evaluates last before jumping to the loop header.
func (l *lowerer) indexRangeStmts() {
	ast.Inspect(l.block, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.RangeStmt:
			last := ast.Node(s.X)
			if s.Key != nil {
				last = s.Key
			}

			if s.Value != nil {
				last = s.Value
			}

			l.rangeHeads[last] = s
		}

		return true
	})
}

// markRangeHeader gives the otherwise empty range loop header the span of
// the range keyword, so that loop iterations are attributed to it.
func (l *lowerer) markRangeHeader(body *m.Body, b *cfg.Block) {
	if len(b.Nodes) == 0 || len(b.Succs) != 1 {
		return
	}

	s, ok := l.rangeHeads[b.Nodes[len(b.Nodes)-1]]
	if !ok {
		return
	}

	header := body.Block(m.BlockID(b.Succs[0].Index))
	if len(header.Statements) > 0 {
		return
	}

	span := m.SpanOf(m.Pos(s.Range), m.Pos(s.Range)+m.Pos(rangeKeyword))
	header.Statements = append(header.Statements, m.Statement{Kind: m.StatementEval, Span: span})
	header.Terminator.Span = span
}

func (l *lowerer) lowerBlock(b *cfg.Block) m.Block {
	block := m.Block{Terminator: m.Terminator{Kind: m.TerminatorUnreachable}}

	nodes := b.Nodes

	if len(b.Succs) == 0 && len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		if term, ok := l.exitTerminator(last); ok {
			block.Terminator = term
			nodes = nodes[:len(nodes)-1]

			block.Statements = append(block.Statements, l.closureHoles(last)...)
		}
	}

	for _, n := range nodes {
		block.Statements = append(block.Statements, m.Statement{Kind: statementKind(n), Span: nodeSpan(n)})
		block.Statements = append(block.Statements, l.closureHoles(n)...)
	}

	if len(b.Succs) == 0 {
		return block
	}

	span := m.NoSpan
	if len(b.Nodes) > 0 {
		span = nodeSpan(b.Nodes[len(b.Nodes)-1])
	}

	kind := m.TerminatorGoto
	if len(b.Succs) > 1 {
		kind = m.TerminatorSwitch
	}

	targets := make([]m.BlockID, 0, len(b.Succs))
	for _, succ := range b.Succs {
		targets = append(targets, m.BlockID(succ.Index))
	}

	block.Terminator = m.Terminator{Kind: kind, Span: span, Targets: targets}

	return block
}

// exitTerminator classifies the last node of a block without successors.
func (l *lowerer) exitTerminator(n ast.Node) (m.Terminator, bool) {
	switch s := n.(type) {
	case *ast.ReturnStmt:
		// go/cfg materialises the implicit return at the closing brace.
		if s.Return == l.block.Rbrace && len(s.Results) == 0 {
			span := m.SpanOf(m.Pos(s.Return), m.Pos(s.Return)+m.Pos(braceWidth))
			return m.Terminator{Kind: m.TerminatorReturn, Span: span}, true
		}

		return m.Terminator{Kind: m.TerminatorReturn, Span: nodeSpan(s)}, true

	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok && !mayReturn(call) {
			return m.Terminator{Kind: m.TerminatorPanic, Span: nodeSpan(s)}, true
		}
	}

	return m.Terminator{}, false
}

// closureHoles lists the function literals directly inside n. They belong to
// their own functions and are collected for separate lowering.
func (l *lowerer) closureHoles(n ast.Node) []m.Statement {
	var holes []m.Statement

	ast.Inspect(n, func(x ast.Node) bool {
		lit, ok := x.(*ast.FuncLit)
		if !ok {
			return true
		}

		l.closures = append(l.closures, lit)
		holes = append(holes, m.Statement{Kind: m.StatementClosure, Span: nodeSpan(lit)})

		return false
	})

	return holes
}

func statementKind(n ast.Node) m.StatementKind {
	switch n.(type) {
	case *ast.AssignStmt, *ast.IncDecStmt:
		return m.StatementAssign
	case *ast.ValueSpec:
		return m.StatementDecl
	case *ast.EmptyStmt:
		return m.StatementNop
	case *ast.BadStmt:
		return m.StatementSynthetic
	}

	return m.StatementEval
}
