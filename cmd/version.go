package cmd

import (
	"runtime/debug"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the covmap build",
		Long:  "Prints the covmap module version, the source revision it was built from and the Go toolchain.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				cmd.Println("covmap (no build information)")
				return
			}

			for _, line := range versionLines(info) {
				cmd.Println(line)
			}
		},
	}
}

// versionLines describes a build: module and version, VCS revision when the
// binary was built from a checkout, and the toolchain.
func versionLines(info *debug.BuildInfo) []string {
	version := info.Main.Version
	if version == "" {
		version = "(devel)"
	}

	lines := []string{info.Main.Path + " " + version}

	settings := lo.SliceToMap(info.Settings, func(s debug.BuildSetting) (string, string) {
		return s.Key, s.Value
	})

	if revision := settings["vcs.revision"]; revision != "" {
		if settings["vcs.modified"] == "true" {
			revision += " (modified)"
		}

		lines = append(lines, "revision "+revision)
	}

	return append(lines, "go "+strings.TrimPrefix(info.GoVersion, "go"))
}
