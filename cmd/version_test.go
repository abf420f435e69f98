package cmd

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Output(t *testing.T) {
	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	info, ok := debug.ReadBuildInfo()
	if !ok {
		assert.Contains(t, out.String(), "no build information")
		return
	}

	assert.Contains(t, out.String(), "go "+info.GoVersion[2:])
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	cmd := newVersionCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestVersionLines(t *testing.T) {
	tests := []struct {
		name string
		info debug.BuildInfo
		want []string
	}{
		{
			name: "release",
			info: debug.BuildInfo{
				GoVersion: "go1.25.1",
				Main:      debug.Module{Path: "covmap.dev/pkg/covmap", Version: "v0.3.0"},
			},
			want: []string{"covmap.dev/pkg/covmap v0.3.0", "go 1.25.1"},
		},
		{
			name: "dirty checkout",
			info: debug.BuildInfo{
				GoVersion: "go1.25.1",
				Main:      debug.Module{Path: "covmap.dev/pkg/covmap"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "4f1c2e9"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: []string{"covmap.dev/pkg/covmap (devel)", "revision 4f1c2e9 (modified)", "go 1.25.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, versionLines(&tt.info))
		})
	}
}
