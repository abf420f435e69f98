// Package cmd provides the root command and CLI setup for covmap.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"covmap.dev/pkg/covmap/internal/adapter"
	"covmap.dev/pkg/covmap/internal/controller"
	"covmap.dev/pkg/covmap/internal/domain"
	m "covmap.dev/pkg/covmap/internal/model"
)

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// noCacheFlag disables incremental planning when set.
var noCacheFlag bool

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

var formatFlag string
var maxDepthFlag int
var strictFlag bool
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)
	rootCmd.AddCommand(newPlanCmd(), newListCmd(), newViewCmd(), newInitCmd(), newVersionCmd())

	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	workflow = configuredWorkflow{}
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...          recursively scan current directory
  - ./pkg/...      recursively scan pkg directory
  - ./cmd ./pkg    scan multiple directories`

const rootLongDescription = `Covmap plans source-based coverage for Go code. For every function it
derives the minimal set of physical counters, the counter expressions that
recover the remaining block counts and the source regions each count maps to.

` + pathPatternsHelp

const planLongDescription = `Plan coverage for the given paths (default: current module) and save
one report per source file.

` + pathPatternsHelp

const listLongDescription = `List source files with the number of instrumented functions, counters,
expressions and regions, without saving reports.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
// Its flags are added in init, once the config defaults are registered.
var rootCmd = baseRootCmd()

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "covmap",
		Short: "Go coverage instrumentation planner",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(reportDirConfigKey),
			"output directory for coverage reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), reportDirConfigKey)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(noCacheConfigKey), "disable cached incremental planning (re-plan everything)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), noCacheConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&formatFlag, formatFlagName, viper.GetString(formatConfigKey), "report encoding: yaml or json")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(formatFlagName), formatConfigKey)

	cmd.PersistentFlags().IntVar(&maxDepthFlag, maxDepthFlagName, viper.GetInt(maxDepthConfigKey), "how deep a block count may be derived before a counter is used (0 = unbounded)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(maxDepthFlagName), maxDepthConfigKey)

	cmd.PersistentFlags().BoolVar(&strictFlag, strictFlagName, viper.GetBool(strictConfigKey), "fail on internal consistency errors instead of dropping regions")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(strictFlagName), strictConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

// instrumentorConfig reads the counter and invariant settings.
func instrumentorConfig() domain.Config {
	return domain.Config{
		MaxResolutionDepth: max(viper.GetInt(maxDepthConfigKey), 0),
		StrictInvariants:   viper.GetBool(strictConfigKey),
	}
}

// buildWorkflow wires the report store and orchestrator from the resolved
// configuration. Flags are only known once a command runs, so this happens
// per invocation rather than in init.
func buildWorkflow() (domain.Workflow, error) {
	format, err := adapter.ParseReportFormat(viper.GetString(formatConfigKey))
	if err != nil {
		return nil, err
	}

	reportStore = adapter.NewReportStore(format)
	orchestrator = domain.NewOrchestrator(fsAdapter, goFileAdapter, instrumentorConfig())

	return domain.NewWorkflow(fsAdapter, reportStore, ui, orchestrator), nil
}

// configuredWorkflow builds the real workflow on every call.
type configuredWorkflow struct{}

func (configuredWorkflow) Plan(ctx context.Context, args domain.PlanArgs) error {
	wf, err := buildWorkflow()
	if err != nil {
		return err
	}

	return wf.Plan(ctx, args)
}

func (configuredWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	wf, err := buildWorkflow()
	if err != nil {
		return err
	}

	return wf.List(ctx, args)
}

func (configuredWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	wf, err := buildWorkflow()
	if err != nil {
		return err
	}

	return wf.View(ctx, args)
}
