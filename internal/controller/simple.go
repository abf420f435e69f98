package controller

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "covmap.dev/pkg/covmap/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd  *cobra.Command
	mode StartMode
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mode = newStartConfig(options).mode

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayConcurrencyInfo shows concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, threads int, files int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s %d file(s) with %d worker(s)\n", s.mode.verb(), files, threads)
}

// DisplayPlannedFile reports progress after one file was planned.
func (s *SimpleUI) DisplayPlannedFile(ctx context.Context, report m.FileReport) {
	if err := ctx.Err(); err != nil || report.Source.Origin == nil {
		return
	}

	summary := m.Summarize(report.Functions)
	s.printf("Planned %s: %d/%d functions instrumented\n", displayPath(report.Source), summary.Instrumented, summary.Functions)
}

// DisplaySummary prints per-file counts or the error that stopped the run.
func (s *SimpleUI) DisplaySummary(ctx context.Context, reports []m.FileReport, err error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err != nil {
		s.printf("planning error: %v\n", err)
		return err
	}

	s.printf("\n%s", renderSummaryTable(buildFileSummaries(reports)))

	return nil
}

// DisplayReports prints every function of the saved reports.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.FileReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(reports) == 0 {
		s.printf("No reports found\n")
		return nil
	}

	for _, report := range reports {
		if report.Source.Origin == nil {
			continue
		}

		s.printf("\n%s\n%s", displayPath(report.Source), renderFunctionTable(report.Functions))
	}

	return nil
}

func renderSummaryTable(rows []fileSummary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Functions", "Instrumented", "Counters", "Expressions", "Regions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	for _, row := range rows {
		table.Append(summaryCells(row.path, row.Summary))
	}

	total := totalSummary(rows)
	table.SetFooter(summaryCells(fmt.Sprintf("Total Files %d", len(rows)), total))

	table.Render()

	return tableBuffer.String()
}

func summaryCells(label string, summary m.Summary) []string {
	return []string{
		label,
		strconv.Itoa(summary.Functions),
		strconv.Itoa(summary.Instrumented),
		strconv.Itoa(summary.Counters),
		strconv.Itoa(summary.Expressions),
		strconv.Itoa(summary.Mappings),
	}
}

func renderFunctionTable(functions []m.FunctionReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Function", "Kind", "Status", "Counters", "Expressions", "Regions", "Spliced"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, fn := range functions {
		table.Append(functionCells(fn))
	}

	table.Render()

	return tableBuffer.String()
}

func functionCells(fn m.FunctionReport) []string {
	status := fn.Status.String()
	if fn.Reason != "" {
		status += " (" + fn.Reason + ")"
	}

	if fn.Info == nil {
		return []string{fn.Function, string(fn.Kind), status, "-", "-", "-", "-"}
	}

	return []string{
		fn.Function,
		string(fn.Kind),
		status,
		strconv.Itoa(int(fn.Info.NumCounters)),
		strconv.Itoa(len(fn.Info.Expressions)),
		strconv.Itoa(len(fn.Info.Mappings)),
		strconv.Itoa(fn.SplicedBlocks),
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
