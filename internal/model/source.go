// Package model defines the data structures shared by the coverage planner.
package model

import "sort"

// Path represents a file system path.
type Path string

// File represents a source file on disk.
type File struct {
	FullPath  Path   `yaml:"full_path" json:"full_path"`
	ShortPath Path   `yaml:"short_path" json:"short_path"`
	Hash      string `yaml:"hash" json:"hash"`
}

// Source is one input of a planning run.
type Source struct {
	Origin *File `yaml:"origin" json:"origin"`
	// Snippet is set for Markdown files whose Go code blocks are planned.
	Snippet bool `yaml:"snippet,omitempty" json:"snippet,omitempty"`
}

// SourceFile is a file loaded into a source map. Positions in
// [Base, Base+len(Src)] belong to it.
type SourceFile struct {
	Name string
	Base Pos
	Src  []byte
	// Lines holds the byte offset, relative to Base, of each line start.
	// Lines[0] is always 0.
	Lines []int
	// LineOffset is added to reported line numbers for embedded snippets.
	LineOffset int
	Snippet    bool
}

// NewSourceFile indexes the line starts of src.
func NewSourceFile(name string, base Pos, src []byte) *SourceFile {
	lines := []int{0}

	for i, c := range src {
		if c == '\n' && i+1 <= len(src) {
			lines = append(lines, i+1)
		}
	}

	return &SourceFile{
		Name:  name,
		Base:  base,
		Src:   src,
		Lines: lines,
	}
}

// End is the position just past the last byte of the file.
func (f *SourceFile) End() Pos {
	return f.Base + Pos(len(f.Src))
}

// Contains reports whether pos falls inside the file, end included.
func (f *SourceFile) Contains(pos Pos) bool {
	return f.Base <= pos && pos <= f.End()
}

// RelativePos converts an absolute position into a byte offset in Src.
func (f *SourceFile) RelativePos(pos Pos) int {
	return int(pos - f.Base)
}

// LookupLine returns the 0-based index of the line holding rel, or -1.
func (f *SourceFile) LookupLine(rel int) int {
	if rel < 0 || rel > len(f.Src) {
		return -1
	}

	return sort.Search(len(f.Lines), func(i int) bool { return f.Lines[i] > rel }) - 1
}

// LineStart returns the relative offset of line index i.
func (f *SourceFile) LineStart(i int) int {
	return f.Lines[i]
}
