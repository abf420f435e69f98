package domain

import (
	"github.com/cespare/xxhash/v2"

	m "covmap.dev/pkg/covmap/internal/model"
)

// sourceHash fingerprints the source text of span. It changes whenever the
// function body is edited and is independent of instrumentation.
func sourceHash(sourceMap SourceMap, span m.Span) uint64 {
	file := sourceMap.LookupFile(span.Lo)
	if file == nil || !file.Contains(span.Hi) {
		return xxhash.Sum64(nil)
	}

	lo, hi := file.RelativePos(span.Lo), file.RelativePos(span.Hi)
	if lo < 0 || hi > len(file.Src) || lo > hi {
		return xxhash.Sum64(nil)
	}

	return xxhash.Sum64(file.Src[lo:hi])
}
