package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	m "covmap.dev/pkg/covmap/internal/model"
)

func TestTUI_DisplaySummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	if err := tui.DisplaySummary(context.Background(), nil, nil); err != nil {
		t.Fatalf("DisplaySummary() error = %v", err)
	}

	if !strings.Contains(buf.String(), "No source files found") {
		t.Errorf("Expected empty message, got: %s", buf.String())
	}
}

func TestTUI_DisplaySummary_SmallList(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	reports := []m.FileReport{
		fileReport("main.go", instrumented("main", 2)),
		fileReport("helper.go", instrumented("help", 3), skipped("c", "not a function")),
	}

	if err := tui.DisplaySummary(context.Background(), reports, nil); err != nil {
		t.Fatalf("DisplaySummary() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"helper.go", "main.go", "Total: 2/3 functions instrumented across 2 file(s)", "Total: 5 counters"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got: %s", want, output)
		}
	}

	if strings.Index(output, "helper.go") > strings.Index(output, "main.go") {
		t.Error("Files should be sorted by path")
	}
}

func TestTUI_DisplaySummary_Error(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	err := tui.DisplaySummary(context.Background(), nil, fmt.Errorf("boom"))
	if err == nil || err.Error() != "boom" {
		t.Fatalf("DisplaySummary() error = %v, want boom", err)
	}

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("Output should contain the error, got: %s", buf.String())
	}
}

func TestTUI_DisplayReports(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	reports := []m.FileReport{fileReport("a.go", instrumented("f", 2), skipped("c", "not a function"))}
	if err := tui.DisplayReports(context.Background(), reports); err != nil {
		t.Fatalf("DisplayReports() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"a.go", "func f: 2 counters, 1 expressions, 4 blocks (+1 spliced)", "not-eligible: not a function", "f.go:2:1-2:5", "Total: 1/2 functions instrumented"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got: %s", want, output)
		}
	}
}

func TestTUI_DisplayReports_Empty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	if err := tui.DisplayReports(context.Background(), nil); err != nil {
		t.Fatalf("DisplayReports() error = %v", err)
	}

	if !strings.Contains(buf.String(), "No reports found") {
		t.Errorf("Expected empty message, got: %s", buf.String())
	}
}

func TestTUI_Progress(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)
	ctx := context.Background()

	if err := tui.Start(ctx, WithPlanMode()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tui.DisplayConcurrencyInfo(ctx, 2, 3)
	tui.DisplayPlannedFile(ctx, fileReport("a.go", instrumented("f", 2)))
	tui.Close(ctx)

	output := buf.String()
	if !strings.Contains(output, "Planning 3 file(s) with 2 worker(s)") {
		t.Errorf("Output should contain concurrency info, got: %s", output)
	}
	if !strings.Contains(output, "a.go: 1/1 functions, 2 counters") {
		t.Errorf("Output should contain planned file, got: %s", output)
	}
}

func pagerWithLines(n int) pagerModel {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}

	model := newPagerModel("test", "empty", lines, []string{"footer"})
	model.height = 20

	return model
}

func TestPagerModel_Pagination(t *testing.T) {
	model := pagerWithLines(50)

	// 20 rows minus title (2), footer (1+1) and navigation (3).
	if got := model.itemsPerPage(); got != 13 {
		t.Fatalf("itemsPerPage() = %d, want 13", got)
	}

	if !model.needsPagination() {
		t.Fatal("needsPagination() = false, want true")
	}

	if got := model.maxOffset(); got != 37 {
		t.Errorf("maxOffset() = %d, want 37", got)
	}

	view := model.View()
	if !strings.Contains(view, "Page 1/4 | Showing 1-13 of 50") {
		t.Errorf("View() missing page indicator: %s", view)
	}
	if strings.Contains(view, "line 13") {
		t.Error("View() should not show lines beyond the first page")
	}
}

func TestPagerModel_NoPaginationWithoutHeight(t *testing.T) {
	model := pagerWithLines(50)
	model.height = 0

	if model.needsPagination() {
		t.Error("needsPagination() = true without a terminal height")
	}

	if !strings.Contains(model.View(), "line 49") {
		t.Error("View() should print every line when not paginating")
	}
}

func TestPagerModel_HandleKeyPress(t *testing.T) {
	tests := []struct {
		name       string
		start      int
		key        tea.KeyMsg
		wantOffset int
		wantQuit   bool
	}{
		{"down", 0, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, 1, false},
		{"down clamps", 37, tea.KeyMsg{Type: tea.KeyDown}, 37, false},
		{"up clamps", 0, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}, 0, false},
		{"bottom", 0, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")}, 37, false},
		{"top", 20, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")}, 0, false},
		{"page down", 0, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")}, 13, false},
		{"page up clamps", 5, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")}, 0, false},
		{"quit", 3, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, 3, true},
		{"ctrl+c", 3, tea.KeyMsg{Type: tea.KeyCtrlC}, 3, true},
		{"esc", 3, tea.KeyMsg{Type: tea.KeyEsc}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := pagerWithLines(50)
			model.offset = tt.start

			updated, cmd := model.Update(tt.key)
			got := updated.(pagerModel)

			if got.offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", got.offset, tt.wantOffset)
			}
			if got.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", got.quitting, tt.wantQuit)
			}
			if tt.wantQuit && cmd == nil {
				t.Error("expected quit command")
			}
		})
	}
}

func TestPagerModel_WindowSize(t *testing.T) {
	model := pagerWithLines(5)

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	got := updated.(pagerModel)

	if got.height != 40 || got.width != 80 {
		t.Errorf("size = %dx%d, want 80x40", got.width, got.height)
	}
	if got.needsPagination() {
		t.Error("5 lines should fit in 40 rows")
	}
}
