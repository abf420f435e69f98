package domain

import (
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	m "covmap.dev/pkg/covmap/internal/model"
)

// SourceMap resolves absolute positions to the files they belong to.
type SourceMap interface {
	// LookupFile returns the file holding pos, or nil.
	LookupFile(pos m.Pos) *m.SourceFile
	// SnippetLineOffset is the number of lines to add to positions of an
	// embedded snippet so they match the enclosing document.
	SnippetLineOffset(file *m.SourceFile) int
}

// RegionMapper turns byte spans into line/column code regions.
type RegionMapper struct {
	sourceMap SourceMap
	strict    bool
}

// NewRegionMapper creates a RegionMapper. With strict set, malformed regions
// panic with an *InvariantError instead of being dropped.
func NewRegionMapper(sourceMap SourceMap, strict bool) *RegionMapper {
	return &RegionMapper{sourceMap: sourceMap, strict: strict}
}

type location struct {
	rel  int
	line int
	col  int
}

func locate(file *m.SourceFile, pos m.Pos) (location, bool) {
	rel := file.RelativePos(pos)

	lineIndex := file.LookupLine(rel)
	if lineIndex < 0 {
		return location{}, false
	}

	return location{rel: rel, line: lineIndex + 1, col: rel - file.LineStart(lineIndex) + 1}, true
}

// MakeCodeRegion maps span, which belongs to the function whose body covers
// bodySpan, to a code region. Spans that cross files or cannot be resolved
// yield false.
func (r *RegionMapper) MakeCodeRegion(span, bodySpan m.Span) (m.CodeRegion, bool) {
	file := r.sourceMap.LookupFile(span.Lo)
	if file == nil || !file.Contains(span.Hi) {
		slog.Debug("Skipping span outside a single file", "span", span)
		return m.CodeRegion{}, false
	}

	lo, ok := locate(file, span.Lo)
	if !ok {
		return m.CodeRegion{}, false
	}

	hi, ok := locate(file, span.Hi)
	if !ok {
		return m.CodeRegion{}, false
	}

	startLine, startCol := lo.line, lo.col
	endLine, endCol := hi.line, hi.col

	// Empty spans are widened by one character so that reports show them.
	// Line and column are resolved first, so a span at the end of a line
	// gets an extra column instead of wrapping to the next one.
	if span.IsEmpty() && bodySpan.Contains(span) && file.Src != nil {
		switch {
		case span.Hi < bodySpan.Hi:
			endCol += ceilCharBoundary(file.Src, hi.rel+1) - hi.rel
		case span.Lo > bodySpan.Lo:
			startCol = max(startCol-(lo.rel-floorCharBoundary(file.Src, lo.rel-1)), 1)
		}
	}

	offset := r.sourceMap.SnippetLineOffset(file)
	startLine += offset
	endLine += offset

	region, ok := r.toRegion(file.Name, startLine, startCol, endLine, endCol)
	if !ok {
		return m.CodeRegion{}, false
	}

	if err := CheckCodeRegion(region); err != nil {
		r.reject(err)
		return m.CodeRegion{}, false
	}

	return region, true
}

func (r *RegionMapper) toRegion(name string, coords ...int) (m.CodeRegion, bool) {
	for _, c := range coords {
		if c < 0 || c > math.MaxUint32 {
			r.reject(fmt.Errorf("coordinate %d out of range in %s", c, name))
			return m.CodeRegion{}, false
		}
	}

	return m.CodeRegion{
		FileName:  name,
		StartLine: uint32(coords[0]),
		StartCol:  uint32(coords[1]),
		EndLine:   uint32(coords[2]),
		EndCol:    uint32(coords[3]),
	}, true
}

func (r *RegionMapper) reject(err error) {
	invariantViolated(r.strict, "", "%v", err)
}

// CheckCodeRegion reports why a region would be misread by coverage
// tooling, or nil when it is well formed.
func CheckCodeRegion(region m.CodeRegion) error {
	if region.StartLine == 0 || region.StartCol == 0 || region.EndLine == 0 || region.EndCol == 0 {
		return fmt.Errorf("improper code region %s: zero coordinate", region)
	}

	if region.EndCol&m.GapRegionBit != 0 {
		return fmt.Errorf("improper code region %s: end column uses the gap bit", region)
	}

	if region.StartLine > region.EndLine || (region.StartLine == region.EndLine && region.StartCol > region.EndCol) {
		return fmt.Errorf("improper code region %s: start after end", region)
	}

	return nil
}

// ceilCharBoundary returns the first UTF-8 character boundary at or after i.
func ceilCharBoundary(src []byte, i int) int {
	if i >= len(src) {
		return len(src)
	}

	for i < len(src) && !utf8.RuneStart(src[i]) {
		i++
	}

	return i
}

// floorCharBoundary returns the last UTF-8 character boundary at or before i.
func floorCharBoundary(src []byte, i int) int {
	if i >= len(src) {
		return len(src)
	}

	if i < 0 {
		return 0
	}

	for i > 0 && !utf8.RuneStart(src[i]) {
		i--
	}

	return i
}
