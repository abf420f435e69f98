package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"covmap.dev/pkg/covmap/internal/domain"
	m "covmap.dev/pkg/covmap/internal/model"
)

var runParallelFlag int

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [paths...]",
		Short: "Plan coverage instrumentation and save reports",
		Long:  planLongDescription,
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.Plan(context.Background(), domain.PlanArgs{
				ListArgs: domain.ListArgs{
					Paths:   parsePaths(args),
					Exclude: viper.GetStringSlice(excludeConfigKey),
					Threads: viper.GetInt(runParallelConfigKey),
				},
				Reports:  m.Path(viper.GetString(reportDirConfigKey)),
				UseCache: !viper.GetBool(noCacheConfigKey),
			})
		},
	}

	configureParallelFlag(cmd)

	return cmd
}

// configureParallelFlag adds --parallel to cmd. plan and list share the
// config key, so the binding is made when the command runs.
func configureParallelFlag(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of files planned in parallel")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)
	}
}
