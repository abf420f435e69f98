// Package controller provides output adapters for displaying coverage plans.
package controller

import (
	"context"
	"os"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "covmap.dev/pkg/covmap/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModePlan
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithListMode sets the UI to list mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithPlanMode sets the UI to planning mode.
func WithPlanMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModePlan
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// verb describes the work of the mode in progress messages.
func (mode StartMode) verb() string {
	switch mode {
	case ModeList:
		return "Listing"
	case ModeView:
		return "Loading"
	default:
		return "Planning"
	}
}

func newStartConfig(options []StartOption) StartConfig {
	var config StartConfig
	for _, option := range options {
		option(&config)
	}

	return config
}

// UI defines the interface for displaying coverage plans.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayConcurrencyInfo(ctx context.Context, threads int, files int)
	DisplayPlannedFile(ctx context.Context, report m.FileReport)
	DisplaySummary(ctx context.Context, reports []m.FileReport, err error) error
	DisplayReports(ctx context.Context, reports []m.FileReport) error
}

// NewUI returns the interactive UI on a terminal and the plain one otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// fileSummary is one row of the summary table.
type fileSummary struct {
	path string
	m.Summary
}

func buildFileSummaries(reports []m.FileReport) []fileSummary {
	rows := lo.FilterMap(reports, func(r m.FileReport, _ int) (fileSummary, bool) {
		if r.Source.Origin == nil {
			return fileSummary{}, false
		}

		return fileSummary{path: displayPath(r.Source), Summary: m.Summarize(r.Functions)}, true
	})

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].path < rows[j].path
	})

	return rows
}

func totalSummary(rows []fileSummary) m.Summary {
	return lo.Reduce(rows, func(total m.Summary, row fileSummary, _ int) m.Summary {
		total.Functions += row.Functions
		total.Instrumented += row.Instrumented
		total.Skipped += row.Skipped
		total.Counters += row.Counters
		total.Expressions += row.Expressions
		total.Mappings += row.Mappings

		return total
	}, m.Summary{})
}

func displayPath(source m.Source) string {
	if source.Origin.ShortPath != "" {
		return string(source.Origin.ShortPath)
	}

	return string(source.Origin.FullPath)
}
