package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"covmap.dev/pkg/covmap/internal/adapter"
	m "covmap.dev/pkg/covmap/internal/model"
)

// Orchestrator plans coverage for every item of one source file. Each
// function body is lowered for that function only and instrumented in
// place, so concurrent PlanSource calls share nothing but the adapters.
type Orchestrator interface {
	PlanSource(ctx context.Context, source m.Source) (m.FileReport, error)
}

type orchestrator struct {
	fsAdapter       adapter.SourceFSAdapter
	goAdapter       adapter.GoFileAdapter
	config          Config
	newInstrumentor func(SourceMap, Config) Instrumentor
}

// NewOrchestrator constructs an Orchestrator backed by the provided
// filesystem and Go file adapters.
func NewOrchestrator(fsAdapter adapter.SourceFSAdapter, goAdapter adapter.GoFileAdapter, config Config) Orchestrator {
	return &orchestrator{
		fsAdapter:       fsAdapter,
		goAdapter:       goAdapter,
		config:          config,
		newInstrumentor: NewInstrumentor,
	}
}

func (o *orchestrator) PlanSource(ctx context.Context, source m.Source) (m.FileReport, error) {
	if err := o.validateSource(source); err != nil {
		return m.FileReport{}, err
	}

	src, err := o.fsAdapter.ReadFile(ctx, source.Origin.FullPath)
	if err != nil {
		slog.Error("Failed to read source", "path", source.Origin.FullPath, "error", err)
		return m.FileReport{}, fmt.Errorf("failed to read source: %w", err)
	}

	unit, err := o.goAdapter.LoadUnit(ctx, source, src)
	if err != nil {
		return m.FileReport{}, fmt.Errorf("failed to load %s: %w", source.Origin.ShortPath, err)
	}

	instrumentor := o.newInstrumentor(unit.SourceMap, o.config)
	report := m.FileReport{Source: source, Functions: make([]m.FunctionReport, 0, len(unit.Functions))}

	for _, fn := range unit.Functions {
		if err := ctx.Err(); err != nil {
			return m.FileReport{}, err
		}

		outcome, err := instrument(instrumentor, fn)
		if err != nil {
			slog.Error("Coverage invariant violated", "path", source.Origin.FullPath, "function", fn.Name, "error", err)
			return m.FileReport{}, fmt.Errorf("failed to plan %s: %w", source.Origin.ShortPath, err)
		}

		report.Functions = append(report.Functions, m.FunctionReport{
			Function:      fn.Name,
			Kind:          fn.Kind,
			Status:        outcome.Status,
			Reason:        outcome.Reason,
			Blocks:        outcome.Blocks,
			SplicedBlocks: outcome.SplicedBlocks,
			Info:          outcome.Info,
		})
	}

	slog.Debug("Planned source", "path", source.Origin.FullPath, "functions", len(report.Functions))

	return report, nil
}

func (o *orchestrator) validateSource(source m.Source) error {
	if source.Origin == nil {
		return fmt.Errorf("source origin is nil")
	}

	return nil
}

// instrument turns a strict-mode invariant panic into an error.
func instrument(instrumentor Instrumentor, fn *m.Function) (outcome Outcome, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		var invariant *InvariantError
		if e, ok := r.(error); ok && errors.As(e, &invariant) {
			err = invariant
			return
		}

		panic(r)
	}()

	return instrumentor.Instrument(fn), nil
}
