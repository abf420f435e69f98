package domain

import (
	"log/slog"

	"covmap.dev/pkg/covmap/internal/domain/coverage"
	m "covmap.dev/pkg/covmap/internal/model"
)

// Config tunes the coverage planner.
type Config struct {
	// MaxResolutionDepth bounds how far a node count may be derived from the
	// counts of its predecessors before a physical counter is used instead.
	// Zero means no bound.
	MaxResolutionDepth int
	// StrictInvariants turns internal consistency failures into panics.
	StrictInvariants bool
}

// Outcome is the result of instrumenting one function.
type Outcome struct {
	Status m.Status
	// Reason explains a NotEligible status.
	Reason string
	// Blocks is the number of blocks the body had before injection.
	Blocks        int
	SplicedBlocks int
	Info          *m.FunctionCoverageInfo
}

// Instrumentor plans and injects coverage counters into function bodies.
type Instrumentor interface {
	// Instrument mutates fn.Body in place when the function is instrumented
	// and attaches the coverage descriptor to it. Skipped functions are left
	// untouched.
	Instrument(fn *m.Function) Outcome
}

type instrumentor struct {
	sourceMap SourceMap
	regions   *RegionMapper
	config    Config
}

// NewInstrumentor creates an Instrumentor resolving positions through
// sourceMap.
func NewInstrumentor(sourceMap SourceMap, config Config) Instrumentor {
	return &instrumentor{
		sourceMap: sourceMap,
		regions:   NewRegionMapper(sourceMap, config.StrictInvariants),
		config:    config,
	}
}

func (in *instrumentor) Instrument(fn *m.Function) Outcome {
	if reason := ineligibleReason(fn); reason != "" {
		slog.Debug("Skipping function", "function", fn.Name, "reason", reason)
		return Outcome{Status: m.StatusNotEligible, Reason: reason}
	}

	body := fn.Body
	outcome := Outcome{Blocks: len(body.Blocks)}

	graph := coverage.NewGraph(body)

	spans := coverage.ExtractSpans(body, graph)
	if spans.Len() == 0 {
		slog.Debug("Skipping function without spans", "function", fn.Name)

		outcome.Status = m.StatusNoSpans

		return outcome
	}

	counters := coverage.MakeCounters(graph, spans.HasMappings, coverage.Options{
		MaxResolutionDepth: in.config.MaxResolutionDepth,
	})

	mappings := in.createMappings(fn.Name, body.Span, spans, counters)
	if len(mappings) == 0 {
		slog.Debug("Skipping function without mappings", "function", fn.Name)

		outcome.Status = m.StatusNoMappings

		return outcome
	}

	inj := &injector{function: fn.Name, body: body, graph: graph, strict: in.config.StrictInvariants}
	outcome.SplicedBlocks = inj.inject(counters, spans)

	info := &m.FunctionCoverageInfo{
		SourceHash:  sourceHash(in.sourceMap, body.Span),
		NumCounters: counters.NumCounters(),
		Expressions: counters.Expressions(),
		Mappings:    mappings,
	}
	body.CoverageInfo = info

	slog.Debug("Instrumented function",
		"function", fn.Name,
		"counters", info.NumCounters,
		"expressions", len(info.Expressions),
		"mappings", len(info.Mappings),
		"spliced", outcome.SplicedBlocks,
	)

	outcome.Status = m.StatusInstrumented
	outcome.Info = info

	return outcome
}

func (in *instrumentor) createMappings(function string, bodySpan m.Span, spans *coverage.Spans, counters *coverage.Counters) []m.Mapping {
	var mappings []m.Mapping

	for _, mapping := range spans.Mappings() {
		term, ok := counters.NodeTerm(mapping.BCB)
		if !ok {
			invariantViolated(in.config.StrictInvariants, function, "%s has a span but no counter", mapping.BCB)
			continue
		}

		region, ok := in.regions.MakeCodeRegion(mapping.Span, bodySpan)
		if !ok {
			continue
		}

		mappings = append(mappings, m.Mapping{Term: term, Region: region})
	}

	return mappings
}
