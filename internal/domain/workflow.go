package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"covmap.dev/pkg/covmap/internal/adapter"
	"covmap.dev/pkg/covmap/internal/controller"
	m "covmap.dev/pkg/covmap/internal/model"
	"covmap.dev/pkg/covmap/pkg"
)

// saveBatchSize is the number of reports written per SaveReports call.
const saveBatchSize = 64

// ListArgs selects the sources of a run.
type ListArgs struct {
	Paths   []m.Path
	Exclude []string
	Threads int
}

// PlanArgs contains the arguments for planning and saving coverage.
type PlanArgs struct {
	ListArgs
	Reports  m.Path
	UseCache bool
	// SpillDir holds temporary report files; empty means the system temp dir.
	SpillDir string
}

// ViewArgs contains the arguments for showing saved reports.
type ViewArgs struct {
	Reports m.Path
}

// Workflow defines the interface for the coverage planning workflow.
type Workflow interface {
	// Plan instruments every function of the selected sources and saves one
	// report per source.
	Plan(ctx context.Context, args PlanArgs) error
	// List instruments the selected sources and shows the counts without
	// saving anything.
	List(ctx context.Context, args ListArgs) error
	// View shows the saved reports.
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ReportStore
	adapter.SourceFSAdapter
	controller.UI
	Orchestrator

	uiMu sync.Mutex
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	orchestrator Orchestrator,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		Orchestrator:    orchestrator,
	}
}

func (w *workflow) Plan(ctx context.Context, args PlanArgs) error {
	if err := w.Start(ctx, controller.WithPlanMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	sources, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		slog.Error("Failed to get sources", "error", err)
		return w.fail(ctx, fmt.Errorf("get sources: %w", err))
	}

	changed, err := w.getChangedSources(ctx, args, sources)
	if err != nil {
		slog.Error("Failed to check report cache", "error", err)
		return w.fail(ctx, fmt.Errorf("check cache: %w", err))
	}

	spillOptions := []pkg.SpillOption{}
	if args.SpillDir != "" {
		spillOptions = append(spillOptions, pkg.WithSpillDir(args.SpillDir))
	}

	spill, err := pkg.NewFileSpill[m.FileReport](spillOptions...)
	if err != nil {
		return w.fail(ctx, fmt.Errorf("create report spill: %w", err))
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Warn("Failed to close report spill", "error", err)
		}
	}()

	threads := threadCount(args.Threads)
	w.DisplayConcurrencyInfo(ctx, threads, len(changed))

	if err := w.planSources(ctx, changed, threads, spill.Append); err != nil {
		return w.fail(ctx, fmt.Errorf("plan sources: %w", err))
	}

	err = spill.Batches(saveBatchSize, func(reports []m.FileReport) error {
		return w.SaveReports(ctx, args.Reports, reports)
	})
	if err != nil {
		slog.Error("Failed to save reports", "dir", args.Reports, "error", err)
		return w.fail(ctx, fmt.Errorf("save reports: %w", err))
	}

	// Unchanged sources keep their earlier reports, so the summary is built
	// from the store rather than from this run alone.
	reports, err := w.LoadReports(ctx, args.Reports)
	if err != nil {
		return w.fail(ctx, fmt.Errorf("load reports: %w", err))
	}

	if err := w.DisplaySummary(ctx, reports, nil); err != nil {
		slog.Error("Failed to display summary", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	sources, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		slog.Error("Failed to get sources", "error", err)
		return w.fail(ctx, fmt.Errorf("get sources: %w", err))
	}

	threads := threadCount(args.Threads)
	w.DisplayConcurrencyInfo(ctx, threads, len(sources))

	var (
		reports   []m.FileReport
		reportsMu sync.Mutex
	)

	err = w.planSources(ctx, sources, threads, func(report m.FileReport) error {
		reportsMu.Lock()
		defer reportsMu.Unlock()

		reports = append(reports, report)

		return nil
	})
	if err != nil {
		return w.fail(ctx, fmt.Errorf("plan sources: %w", err))
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Source.Origin.FullPath < reports[j].Source.Origin.FullPath
	})

	if err := w.DisplaySummary(ctx, reports, nil); err != nil {
		slog.Error("Failed to display summary", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	reports, err := w.LoadReports(ctx, args.Reports)
	if err != nil {
		slog.Error("Failed to load reports", "dir", args.Reports, "error", err)
		return fmt.Errorf("load reports: %w", err)
	}

	if err := w.DisplayReports(ctx, reports); err != nil {
		slog.Error("Failed to display reports", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// fail shows err in the UI and returns it.
func (w *workflow) fail(ctx context.Context, err error) error {
	if displayErr := w.DisplaySummary(ctx, nil, err); displayErr != nil && !errors.Is(displayErr, err) {
		slog.Warn("Failed to display error", "error", displayErr)
	}

	return err
}

// planSources plans every source on a pool of threads workers and hands the
// reports to sink. The first failure cancels the remaining sources.
func (w *workflow) planSources(ctx context.Context, sources []m.Source, threads int, sink func(m.FileReport) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for _, source := range sources {
		group.Go(func() error {
			report, err := w.PlanSource(groupCtx, source)
			if err != nil {
				return err
			}

			w.uiMu.Lock()
			w.DisplayPlannedFile(groupCtx, report)
			w.uiMu.Unlock()

			return sink(report)
		})
	}

	return group.Wait()
}

func (w *workflow) getChangedSources(ctx context.Context, args PlanArgs, sources []m.Source) ([]m.Source, error) {
	if !args.UseCache || args.Reports == "" {
		return sources, nil
	}

	changed, err := w.CheckUpdates(ctx, args.Reports, sources)
	if err != nil {
		return nil, err
	}

	currentByPath := w.buildSourcePathMap(sources)
	deleted, changedExisting := w.separateDeletedAndChanged(changed, currentByPath)

	if len(deleted) > 0 {
		slog.Debug("Removing reports of deleted sources", "count", len(deleted))

		if err := w.CleanReports(ctx, args.Reports, deleted); err != nil {
			return nil, err
		}
	}

	return changedExisting, nil
}

func (w *workflow) buildSourcePathMap(sources []m.Source) map[m.Path]m.Source {
	withOrigin := lo.Filter(sources, func(src m.Source, _ int) bool {
		return src.Origin != nil && src.Origin.FullPath != ""
	})

	return lo.KeyBy(withOrigin, func(src m.Source) m.Path {
		return src.Origin.FullPath
	})
}

func (w *workflow) separateDeletedAndChanged(changed []m.Source, currentByPath map[m.Path]m.Source) ([]m.Source, []m.Source) {
	deleted := make([]m.Source, 0)
	changedExisting := make([]m.Source, 0)

	for _, src := range changed {
		if src.Origin == nil || src.Origin.FullPath == "" {
			continue
		}

		if current, ok := currentByPath[src.Origin.FullPath]; ok {
			changedExisting = append(changedExisting, current)
		} else {
			deleted = append(deleted, src)
		}
	}

	return deleted, changedExisting
}

func threadCount(threads int) int {
	return max(threads, 1)
}
