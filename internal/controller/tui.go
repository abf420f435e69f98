package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"golang.org/x/term"

	m "covmap.dev/pkg/covmap/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pathStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true).Foreground(lipgloss.Color("8"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer
	mode   StartMode
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start initializes the UI.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mode = newStartConfig(options).mode

	return nil
}

// Close finalizes the UI.
func (p *TUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait returns once the pager, if any, was closed by the user. Pagers run
// synchronously inside the Display calls.
func (p *TUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayConcurrencyInfo shows concurrency settings.
func (p *TUI) DisplayConcurrencyInfo(ctx context.Context, threads int, files int) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "%s\n  %s %d file(s) with %d worker(s)\n\n", titleStyle.Render("covmap - coverage plan"), p.mode.verb(), files, threads)
}

// DisplayPlannedFile reports progress after one file was planned.
func (p *TUI) DisplayPlannedFile(ctx context.Context, report m.FileReport) {
	if err := ctx.Err(); err != nil || report.Source.Origin == nil {
		return
	}

	summary := m.Summarize(report.Functions)
	_, _ = fmt.Fprintf(p.output, "  %s %s\n", dimStyle.Render("planned"), summaryLine(displayPath(report.Source), summary))
}

// DisplaySummary shows per-file counts, paging when they do not fit.
func (p *TUI) DisplaySummary(ctx context.Context, reports []m.FileReport, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		_, _ = fmt.Fprintf(p.output, "%s %v\n", errorStyle.Render("planning error:"), err)
		return err
	}

	rows := buildFileSummaries(reports)
	lines := make([]string, 0, len(rows))

	for _, row := range rows {
		lines = append(lines, summaryLine(row.path, row.Summary))
	}

	total := totalSummary(rows)
	footer := []string{
		fmt.Sprintf("Total: %d/%d functions instrumented across %d file(s)", total.Instrumented, total.Functions, len(rows)),
		fmt.Sprintf("Total: %d counters, %d expressions, %d regions", total.Counters, total.Expressions, total.Mappings),
	}

	return p.page(newPagerModel("coverage summary", "No source files found", lines, footer))
}

// DisplayReports shows every function of the saved reports.
func (p *TUI) DisplayReports(ctx context.Context, reports []m.FileReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var lines []string

	for _, report := range reports {
		if report.Source.Origin == nil {
			continue
		}

		lines = append(lines, pathStyle.Render(displayPath(report.Source)))
		for _, fn := range report.Functions {
			lines = append(lines, functionLine(fn))
			lines = append(lines, regionLines(fn)...)
		}

		lines = append(lines, "")
	}

	summary := m.Summarize(lo.FlatMap(reports, func(r m.FileReport, _ int) []m.FunctionReport {
		return r.Functions
	}))
	footer := []string{fmt.Sprintf("Total: %d/%d functions instrumented", summary.Instrumented, summary.Functions)}

	return p.page(newPagerModel("coverage reports", "No reports found", lines, footer))
}

func (p *TUI) page(model pagerModel) error {
	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If list is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

func summaryLine(path string, summary m.Summary) string {
	return fmt.Sprintf("%s: %s/%d functions, %s counters, %s expressions, %s regions",
		path,
		count(summary.Instrumented), summary.Functions,
		count(summary.Counters),
		count(summary.Expressions),
		count(summary.Mappings))
}

// count renders zero values dimmed.
func count(n int) string {
	if n == 0 {
		return dimStyle.Render("0")
	}

	return fmt.Sprint(n)
}

func functionLine(fn m.FunctionReport) string {
	if fn.Status != m.StatusInstrumented || fn.Info == nil {
		status := fn.Status.String()
		if fn.Reason != "" {
			status += ": " + fn.Reason
		}

		return fmt.Sprintf("  %s %s %s", fn.Kind, fn.Function, skippedStyle.Render("("+status+")"))
	}

	return fmt.Sprintf("  %s %s: %d counters, %d expressions, %d blocks (+%d spliced)",
		fn.Kind, fn.Function, fn.Info.NumCounters, len(fn.Info.Expressions), fn.Blocks, fn.SplicedBlocks)
}

func regionLines(fn m.FunctionReport) []string {
	if fn.Info == nil {
		return nil
	}

	lines := make([]string, 0, len(fn.Info.Expressions)+len(fn.Info.Mappings))
	for _, expr := range fn.Info.Expressions {
		lines = append(lines, dimStyle.Render("      "+expr.String()))
	}

	for _, mapping := range fn.Info.Mappings {
		lines = append(lines, fmt.Sprintf("      %-10s %s", mapping.Term, mapping.Region))
	}

	return lines
}

type pagerKeyMap struct {
	Quit     key.Binding
	Down     key.Binding
	Up       key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageDown key.Binding
	PageUp   key.Binding
}

var pagerKeys = pagerKeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	PageDown: key.NewBinding(key.WithKeys("d", "pgdown"), key.WithHelp("d", "page down")),
	PageUp:   key.NewBinding(key.WithKeys("u", "pgup"), key.WithHelp("u", "page up")),
}

func (k pagerKeyMap) help() string {
	bindings := []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.Quit}
	parts := make([]string, 0, len(bindings))

	for _, b := range bindings {
		parts = append(parts, b.Help().Key+": "+b.Help().Desc)
	}

	return strings.Join(parts, " | ")
}

// pagerModel is a scrollable list of lines with a fixed header and footer.
type pagerModel struct {
	title    string
	empty    string
	lines    []string
	footer   []string
	height   int
	width    int
	offset   int // Current scroll offset
	quitting bool
}

func newPagerModel(title, empty string, lines, footer []string) pagerModel {
	return pagerModel{
		title:  title,
		empty:  empty,
		lines:  lines,
		footer: footer,
	}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.height = msg.Height
		pm.width = msg.Width

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)
	}

	return pm, nil
}

func (pm pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, pagerKeys.Quit):
		pm.quitting = true
		return pm, tea.Quit

	case key.Matches(msg, pagerKeys.Down):
		pm.offset = min(pm.offset+1, pm.maxOffset())

	case key.Matches(msg, pagerKeys.Up):
		pm.offset = max(pm.offset-1, 0)

	case key.Matches(msg, pagerKeys.Top):
		pm.offset = 0

	case key.Matches(msg, pagerKeys.Bottom):
		pm.offset = pm.maxOffset()

	case key.Matches(msg, pagerKeys.PageDown):
		pm.offset = min(pm.offset+pm.itemsPerPage(), pm.maxOffset())

	case key.Matches(msg, pagerKeys.PageUp):
		pm.offset = max(pm.offset-pm.itemsPerPage(), 0)
	}

	return pm, nil
}

// itemsPerPage calculates how many lines fit between header and footer.
func (pm pagerModel) itemsPerPage() int {
	if pm.height == 0 {
		return 10 // Default
	}
	// Title and blank line, blank line before the footer, footer lines,
	// then blank, page indicator and help.
	reserved := 2 + 1 + len(pm.footer) + 3

	available := pm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// maxOffset returns the maximum scroll offset.
func (pm pagerModel) maxOffset() int {
	return max(len(pm.lines)-pm.itemsPerPage(), 0)
}

// needsPagination returns true if the list is too large to fit on screen.
func (pm pagerModel) needsPagination() bool {
	if len(pm.lines) == 0 {
		return false
	}

	return len(pm.lines) > pm.itemsPerPage() && pm.height > 0
}

func (pm pagerModel) View() string {
	if pm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("covmap - "+pm.title) + "\n\n")

	if len(pm.lines) == 0 {
		b.WriteString("  " + pm.empty + "\n")
		return b.String()
	}

	paginate := pm.needsPagination()
	start, end := 0, len(pm.lines)

	if paginate {
		start = min(pm.offset, pm.maxOffset())
		end = min(start+pm.itemsPerPage(), len(pm.lines))
	}

	for _, line := range pm.lines[start:end] {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")

	for _, line := range pm.footer {
		b.WriteString("  " + line + "\n")
	}

	if paginate {
		perPage := pm.itemsPerPage()
		currentPage := (start / perPage) + 1
		totalPages := (len(pm.lines) + perPage - 1) / perPage

		fmt.Fprintf(&b, "\n  Page %d/%d | Showing %d-%d of %d\n", currentPage, totalPages, start+1, end, len(pm.lines))
		b.WriteString("  " + pagerKeys.help() + "\n")
	}

	return b.String()
}
