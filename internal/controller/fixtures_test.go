package controller

import (
	m "covmap.dev/pkg/covmap/internal/model"
)

func fileReport(path string, functions ...m.FunctionReport) m.FileReport {
	return m.FileReport{
		Source:    m.Source{Origin: &m.File{FullPath: m.Path("/repo/" + path), ShortPath: m.Path(path), Hash: "h"}},
		Functions: functions,
	}
}

func instrumented(name string, counters uint32) m.FunctionReport {
	return m.FunctionReport{
		Function:      name,
		Kind:          m.KindFunc,
		Status:        m.StatusInstrumented,
		Blocks:        4,
		SplicedBlocks: 1,
		Info: &m.FunctionCoverageInfo{
			SourceHash:  1,
			NumCounters: counters,
			Expressions: []m.Expression{
				{ID: 0, LHS: m.CounterTerm(0), Op: m.OpSubtract, RHS: m.CounterTerm(1)},
			},
			Mappings: []m.Mapping{
				{Term: m.CounterTerm(0), Region: m.CodeRegion{FileName: name + ".go", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}},
				{Term: m.ExpressionTerm(0), Region: m.CodeRegion{FileName: name + ".go", StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 5}},
			},
		},
	}
}

func skipped(name, reason string) m.FunctionReport {
	return m.FunctionReport{Function: name, Kind: m.KindConst, Status: m.StatusNotEligible, Reason: reason}
}
