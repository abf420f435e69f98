package model

// FunctionReport is the planning result for one function.
type FunctionReport struct {
	Function string   `yaml:"function" json:"function"`
	Kind     ItemKind `yaml:"kind" json:"kind"`
	Status   Status   `yaml:"status" json:"status"`
	// Reason explains why a function was not eligible.
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
	// Blocks is the number of basic blocks before injection.
	Blocks int `yaml:"blocks" json:"blocks"`
	// SplicedBlocks is the number of blocks added for edge counters.
	SplicedBlocks int                   `yaml:"spliced_blocks" json:"spliced_blocks"`
	Info          *FunctionCoverageInfo `yaml:"coverage,omitempty" json:"coverage,omitempty"`
}

// FileReport groups the function reports of one source.
type FileReport struct {
	Source    Source           `yaml:"source" json:"source"`
	Functions []FunctionReport `yaml:"functions" json:"functions"`
}

// Summary aggregates counts over function reports.
type Summary struct {
	Functions    int
	Instrumented int
	Skipped      int
	Counters     int
	Expressions  int
	Mappings     int
}

// Summarize folds the reports into a Summary.
func Summarize(reports []FunctionReport) Summary {
	var s Summary

	for _, r := range reports {
		s.Functions++

		if r.Status != StatusInstrumented || r.Info == nil {
			s.Skipped++
			continue
		}

		s.Instrumented++
		s.Counters += int(r.Info.NumCounters)
		s.Expressions += len(r.Info.Expressions)
		s.Mappings += len(r.Info.Mappings)
	}

	return s
}
