package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"covmap.dev/pkg/covmap/internal/domain"
	domainmocks "covmap.dev/pkg/covmap/internal/domain/mocks"
)

// newTestRootCmd builds a root command with sub attached, keeps the log file
// out of the package directory and returns the buffer receiving output.
func newTestRootCmd(t *testing.T, sub *cobra.Command) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Setenv("COVMAP_LOG_FILENAME", filepath.Join(t.TempDir(), "covmap.log"))

	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.AddCommand(sub)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	return cmd, out
}

// useWorkflow swaps the package workflow for the duration of the test.
func useWorkflow(t *testing.T, wf domain.Workflow) {
	t.Helper()

	originalWorkflow := workflow
	workflow = wf
	t.Cleanup(func() { workflow = originalWorkflow })
}

func newMockWorkflow(t *testing.T) *domainmocks.MockWorkflow {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)
	useWorkflow(t, mockWorkflow)

	return mockWorkflow
}
