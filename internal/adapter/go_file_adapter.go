package adapter

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"strings"

	m "covmap.dev/pkg/covmap/internal/model"
)

// coverageOffDirective opts a function out of instrumentation.
const coverageOffDirective = "//covmap:off"

// Unit is one parsed source with its items ready for instrumentation. Every
// Function owns its Body; the SourceMap is shared and read-only.
type Unit struct {
	SourceMap *SourceMap
	Functions []*m.Function
}

// GoFileAdapter encapsulates Go-specific parsing and lowering so the domain
// layer only deals with control-flow graphs and spans.
type GoFileAdapter interface {
	// LoadUnit parses src, the contents of source, and lowers every
	// function-like item to a CFG. Markdown sources contribute their
	// embedded Go snippets.
	LoadUnit(ctx context.Context, source m.Source, src []byte) (*Unit, error)
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser
// and golang.org/x/tools/go/cfg.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// LoadUnit implements GoFileAdapter.
func (a *LocalGoFileAdapter) LoadUnit(ctx context.Context, source m.Source, src []byte) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if source.Origin == nil {
		return nil, fmt.Errorf("source origin is nil")
	}

	name := string(source.Origin.FullPath)
	unit := &Unit{SourceMap: NewSourceMap()}

	if !source.Snippet {
		file, err := unit.SourceMap.Parse(name, src, 0, false)
		if err != nil {
			slog.Error("Failed to parse source", "path", name, "error", err)
			return nil, err
		}

		unit.Functions = extractFunctions(file, "")

		return unit, nil
	}

	for i, snippet := range ExtractSnippets(src) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Prose often carries fragments that are not complete Go files.
		file, err := unit.SourceMap.Parse(name, snippet.Src, snippet.LineOffset, true)
		if err != nil {
			slog.Warn("Skipping unparsable snippet", "path", name, "line", snippet.LineOffset, "error", err)
			continue
		}

		unit.Functions = append(unit.Functions, extractFunctions(file, fmt.Sprintf("snippet%d.", i+1))...)
	}

	return unit, nil
}

// extractFunctions lists the items of file in declaration order. Closures
// follow the item that contains them.
func extractFunctions(file *ast.File, prefix string) []*m.Function {
	var functions []*m.Function

	generated := ast.IsGenerated(file)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			fn := &m.Function{
				Name:        prefix + funcDeclName(d),
				Kind:        m.KindFunc,
				Generated:   generated,
				CoverageOff: hasCoverageOff(d.Doc),
			}

			if d.Recv != nil {
				fn.Kind = m.KindMethod
			}

			functions = append(functions, fn)

			if d.Body == nil {
				continue
			}

			lowered := lowerBody(d.Type.Func, d.Body)
			fn.Body = lowered.body
			functions = append(functions, closures(fn, lowered.closures)...)

		case *ast.GenDecl:
			functions = append(functions, genDeclItems(d, prefix, generated)...)
		}
	}

	return functions
}

func genDeclItems(d *ast.GenDecl, prefix string, generated bool) []*m.Function {
	var kind m.ItemKind

	switch d.Tok {
	case token.CONST:
		kind = m.KindConst
	case token.VAR:
		kind = m.KindVar
	case token.TYPE:
		kind = m.KindType
	default:
		return nil
	}

	var items []*m.Function

	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			items = append(items, &m.Function{Name: prefix + s.Name.Name, Kind: kind, Generated: generated})

		case *ast.ValueSpec:
			for _, ident := range s.Names {
				items = append(items, &m.Function{Name: prefix + ident.Name, Kind: kind, Generated: generated})
			}

			// Function literals in package-level initializers are closures
			// of the first declared name.
			if len(s.Names) == 0 || len(s.Values) == 0 {
				continue
			}

			owner := &m.Function{Name: prefix + s.Names[0].Name, Generated: generated, CoverageOff: hasCoverageOff(d.Doc)}

			var lits []*ast.FuncLit

			for _, value := range s.Values {
				lits = append(lits, directFuncLits(value)...)
			}

			items = append(items, closures(owner, lits)...)
		}
	}

	return items
}

// closures lowers the function literals found directly in parent, and
// recursively those nested in them.
func closures(parent *m.Function, lits []*ast.FuncLit) []*m.Function {
	var out []*m.Function

	for i, lit := range lits {
		fn := &m.Function{
			Name:        fmt.Sprintf("%s.func%d", parent.Name, i+1),
			Kind:        m.KindClosure,
			Generated:   parent.Generated,
			CoverageOff: parent.CoverageOff,
		}

		lowered := lowerBody(lit.Type.Func, lit.Body)
		fn.Body = lowered.body

		out = append(out, fn)
		out = append(out, closures(fn, lowered.closures)...)
	}

	return out
}

func directFuncLits(n ast.Node) []*ast.FuncLit {
	var lits []*ast.FuncLit

	ast.Inspect(n, func(x ast.Node) bool {
		if lit, ok := x.(*ast.FuncLit); ok {
			lits = append(lits, lit)
			return false
		}

		return true
	})

	return lits
}

func funcDeclName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return d.Name.Name
	}

	return receiverTypeName(d.Recv.List[0].Type) + "." + d.Name.Name
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "(*" + receiverTypeName(t.X) + ")"
	case *ast.ParenExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}

	return "?"
}

func hasCoverageOff(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}

	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == coverageOffDirective {
			return true
		}
	}

	return false
}
