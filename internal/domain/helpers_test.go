package domain

import (
	"bytes"

	m "covmap.dev/pkg/covmap/internal/model"
)

const lineWidth = 20

// fakeSourceMap resolves positions against a fixed list of files.
type fakeSourceMap struct {
	files []*m.SourceFile
}

func (f *fakeSourceMap) LookupFile(pos m.Pos) *m.SourceFile {
	for _, file := range f.files {
		if file.Contains(pos) {
			return file
		}
	}

	return nil
}

func (f *fakeSourceMap) SnippetLineOffset(file *m.SourceFile) int {
	if file.Snippet {
		return file.LineOffset
	}

	return 0
}

// textFile returns a file of the given number of lines, each lineWidth bytes
// long including its newline.
func textFile(name string, base m.Pos, lines int) *m.SourceFile {
	line := append(bytes.Repeat([]byte("x"), lineWidth-1), '\n')
	return m.NewSourceFile(name, base, bytes.Repeat(line, lines))
}

// blockSpan is the span of block i: columns 3 to 9 of line i+1.
func blockSpan(i int) m.Span {
	lo := m.Pos(1 + i*lineWidth + 2)
	return m.SpanOf(lo, lo+6)
}

type testBlock struct {
	kind    m.TerminatorKind
	targets []m.BlockID
}

func jump(to m.BlockID) testBlock {
	return testBlock{kind: m.TerminatorGoto, targets: []m.BlockID{to}}
}

func branch(targets ...m.BlockID) testBlock {
	return testBlock{kind: m.TerminatorSwitch, targets: targets}
}

func ret() testBlock {
	return testBlock{kind: m.TerminatorReturn}
}

// buildBody lays out one block per source line of a file starting at 1.
func buildBody(blocks ...testBlock) *m.Body {
	body := &m.Body{Span: m.SpanOf(1, m.Pos(1+len(blocks)*lineWidth))}

	for i, b := range blocks {
		span := blockSpan(i)
		body.Blocks = append(body.Blocks, m.Block{
			Statements: []m.Statement{{Kind: m.StatementAssign, Span: span}},
			Terminator: m.Terminator{Kind: b.kind, Span: span.ShrinkToHi(), Targets: b.targets},
		})
	}

	return body
}

func function(name string, body *m.Body) *m.Function {
	return &m.Function{Name: name, Kind: m.KindFunc, Body: body}
}

func diamondFunction() *m.Function {
	return function("diamond", buildBody(branch(1, 2), jump(3), jump(3), ret()))
}

func nestedLoopFunction() *m.Function {
	return function("nested", buildBody(
		jump(1),
		branch(2, 7),
		jump(3),
		branch(4, 6),
		branch(5, 7),
		jump(3),
		jump(1),
		ret(),
	))
}

func sourceMapFor(lines int) *fakeSourceMap {
	return &fakeSourceMap{files: []*m.SourceFile{textFile("main.go", 1, lines)}}
}

func strictConfig() Config {
	return Config{StrictInvariants: true}
}

func coverageStatements(block m.Block) []m.CoverageKind {
	var out []m.CoverageKind

	for _, stmt := range block.Statements {
		if stmt.Kind == m.StatementCoverage {
			out = append(out, *stmt.Coverage)
		}
	}

	return out
}
