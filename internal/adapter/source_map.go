package adapter

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	m "covmap.dev/pkg/covmap/internal/model"
)

// SourceMap resolves planner positions to the files parsed into it. Planner
// positions are go/token positions of the underlying FileSet.
type SourceMap struct {
	fset  *token.FileSet
	files map[*token.File]*m.SourceFile
}

// NewSourceMap creates an empty SourceMap.
func NewSourceMap() *SourceMap {
	return &SourceMap{
		fset:  token.NewFileSet(),
		files: make(map[*token.File]*m.SourceFile),
	}
}

// Parse parses src as a Go file named name and registers it. lineOffset is
// added to reported lines of snippet files.
func (s *SourceMap) Parse(name string, src []byte, lineOffset int, snippet bool) (*ast.File, error) {
	file, err := parser.ParseFile(s.fset, name, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	tf := s.fset.File(file.Package)
	if tf == nil {
		return nil, fmt.Errorf("parse %s: file not registered", name)
	}

	sf := m.NewSourceFile(name, m.Pos(tf.Base()), src)
	sf.LineOffset = lineOffset
	sf.Snippet = snippet
	s.files[tf] = sf

	return file, nil
}

// LookupFile returns the file holding pos, or nil.
func (s *SourceMap) LookupFile(pos m.Pos) *m.SourceFile {
	tf := s.fset.File(token.Pos(pos))
	if tf == nil {
		return nil
	}

	return s.files[tf]
}

// SnippetLineOffset returns the line offset of an embedded snippet, zero for
// regular files.
func (s *SourceMap) SnippetLineOffset(file *m.SourceFile) int {
	if file == nil || !file.Snippet {
		return 0
	}

	return file.LineOffset
}
