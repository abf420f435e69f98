package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	m "covmap.dev/pkg/covmap/internal/model"
)

// ReportFormat selects the on-disk encoding of reports.
type ReportFormat string

// Supported report formats.
const (
	FormatYAML ReportFormat = "yaml"
	FormatJSON ReportFormat = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseReportFormat validates a format name.
func ParseReportFormat(name string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(name))) {
	case FormatYAML, "yml", "":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}

	return "", fmt.Errorf("unknown report format %q", name)
}

func (f ReportFormat) extension() string {
	return "." + string(f)
}

// ReportStore persists one coverage plan report per source file.
type ReportStore interface {
	// SaveReports writes reports into dir, replacing earlier reports of the
	// same sources.
	SaveReports(ctx context.Context, dir m.Path, reports []m.FileReport) error
	// LoadReports reads every report in dir, sorted by source path.
	LoadReports(ctx context.Context, dir m.Path) ([]m.FileReport, error)
	// CheckUpdates returns the sources whose report is missing or stale, and
	// the stored sources that are no longer part of sources.
	CheckUpdates(ctx context.Context, dir m.Path, sources []m.Source) ([]m.Source, error)
	// CleanReports removes the reports of sources.
	CleanReports(ctx context.Context, dir m.Path, sources []m.Source) error
}

type reportStore struct {
	format ReportFormat
}

// NewReportStore creates a ReportStore writing the given format. Reports of
// both formats are read back.
func NewReportStore(format ReportFormat) ReportStore {
	return &reportStore{format: format}
}

// reportFileName derives a stable file name from the source path.
func reportFileName(path m.Path, format ReportFormat) string {
	return fmt.Sprintf("%016x%s", xxhash.Sum64String(string(path)), format.extension())
}

func (s *reportStore) SaveReports(ctx context.Context, dir m.Path, reports []m.FileReport) error {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create reports directory", "dir", dir, "error", err)
		return fmt.Errorf("create reports directory: %w", err)
	}

	for _, report := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}

		if report.Source.Origin == nil {
			return fmt.Errorf("report without source origin")
		}

		data, err := s.marshal(report)
		if err != nil {
			slog.Error("Failed to encode report", "path", report.Source.Origin.FullPath, "error", err)
			return fmt.Errorf("encode report for %s: %w", report.Source.Origin.FullPath, err)
		}

		// A report in the other format would shadow the new one on load.
		for _, format := range []ReportFormat{FormatYAML, FormatJSON} {
			if format == s.format {
				continue
			}

			stale := filepath.Join(string(dir), reportFileName(report.Source.Origin.FullPath, format))
			if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove stale report: %w", err)
			}
		}

		target := filepath.Join(string(dir), reportFileName(report.Source.Origin.FullPath, s.format))
		if err := os.WriteFile(target, data, 0o600); err != nil {
			slog.Error("Failed to write report", "path", target, "error", err)
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func (s *reportStore) marshal(report m.FileReport) ([]byte, error) {
	if s.format == FormatJSON {
		return json.MarshalIndent(report, "", "  ")
	}

	return yaml.Marshal(report)
}

func unmarshalReport(name string, data []byte) (m.FileReport, error) {
	var report m.FileReport

	var err error

	switch filepath.Ext(name) {
	case FormatJSON.extension():
		err = json.Unmarshal(data, &report)
	default:
		err = yaml.Unmarshal(data, &report)
	}

	return report, err
}

func (s *reportStore) LoadReports(ctx context.Context, dir m.Path) ([]m.FileReport, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		slog.Error("Failed to read reports directory", "dir", dir, "error", err)

		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var reports []m.FileReport

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != FormatYAML.extension() && ext != FormatJSON.extension()) {
			continue
		}

		path := filepath.Join(string(dir), entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read report %s: %w", path, err)
		}

		report, err := unmarshalReport(entry.Name(), data)
		if err != nil {
			slog.Error("Failed to decode report", "path", path, "error", err)
			return nil, fmt.Errorf("decode report %s: %w", path, err)
		}

		if report.Source.Origin == nil {
			slog.Warn("Ignoring report without source", "path", path)
			continue
		}

		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Source.Origin.FullPath < reports[j].Source.Origin.FullPath
	})

	return reports, nil
}

func (s *reportStore) CheckUpdates(ctx context.Context, dir m.Path, sources []m.Source) ([]m.Source, error) {
	reports, err := s.LoadReports(ctx, dir)
	if err != nil {
		return nil, err
	}

	stored := make(map[m.Path]m.Source, len(reports))
	for _, report := range reports {
		stored[report.Source.Origin.FullPath] = report.Source
	}

	var changed []m.Source

	seen := make(map[m.Path]bool, len(sources))

	for _, source := range sources {
		if source.Origin == nil {
			continue
		}

		seen[source.Origin.FullPath] = true

		previous, ok := stored[source.Origin.FullPath]
		if !ok || previous.Origin.Hash != source.Origin.Hash || previous.Snippet != source.Snippet {
			changed = append(changed, source)
		}
	}

	for _, report := range reports {
		if !seen[report.Source.Origin.FullPath] {
			changed = append(changed, report.Source)
		}
	}

	return changed, nil
}

func (s *reportStore) CleanReports(ctx context.Context, dir m.Path, sources []m.Source) error {
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		if source.Origin == nil {
			continue
		}

		for _, format := range []ReportFormat{FormatYAML, FormatJSON} {
			path := filepath.Join(string(dir), reportFileName(source.Origin.FullPath, format))
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Error("Failed to remove report", "path", path, "error", err)
				return fmt.Errorf("remove report: %w", err)
			}
		}
	}

	return nil
}
