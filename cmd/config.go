package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configBaseName   = "covmap"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."
	envPrefix        = "COVMAP"

	outputFlagName      = "output"
	noCacheFlagName     = "no-cache"
	excludeFlagName     = "exclude"
	formatFlagName      = "format"
	maxDepthFlagName    = "max-depth"
	strictFlagName      = "strict"
	verboseFlagName     = "verbose"
	runParallelFlagName = "parallel"
)

// Keys of covmap.yaml. A key "a.b" is also read from COVMAP_A_B.
const (
	configVersionKey     = "version"
	reportDirConfigKey   = "report.dir"
	formatConfigKey      = "report.format"
	noCacheConfigKey     = "plan.no_cache"
	runParallelConfigKey = "run.parallel"
	excludeConfigKey     = "paths.exclude"
	maxDepthConfigKey    = "counters.max_depth"
	strictConfigKey      = "debug.strict_invariants"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"
)

const (
	currentConfigVersion = 1
	defaultReportsDir    = ".covmap-reports"
	defaultRunParallel   = 1
	defaultReportFormat  = "yaml"
	defaultLogFilename   = ".covmap.log"
)

// configDefaults is what `covmap init` writes and what applies when neither
// the config file, the environment nor a flag sets a key.
var configDefaults = []struct {
	key   string
	value any
}{
	{configVersionKey, currentConfigVersion},
	{reportDirConfigKey, defaultReportsDir},
	{formatConfigKey, defaultReportFormat},
	{noCacheConfigKey, false},
	{runParallelConfigKey, defaultRunParallel},
	{excludeConfigKey, []string{}},
	{maxDepthConfigKey, 0},
	{strictConfigKey, false},

	{logFilenameKey, defaultLogFilename},
	{logLevelKey, slog.LevelInfo.String()},
	{logVerboseKey, false},
	{logMaxSizeKey, 10},
	{logMaxBackupsKey, 3},
	{logMaxAgeKey, 28},
	{logCompressKey, true},
}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for _, d := range configDefaults {
		viper.SetDefault(d.key, d.value)
	}

	readConfigFile()
}

// readConfigFile loads covmap.yaml when present. A broken file is reported
// and the defaults stay in effect.
func readConfigFile() {
	err := viper.ReadInConfig()
	if err == nil {
		slog.Debug("Loaded config", "file", viper.ConfigFileUsed())
		return
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return
	}

	slog.Warn("Ignoring unreadable config", "file", configFileName, "error", err)
}

// levelAliases are spellings slog does not parse itself.
var levelAliases = map[string]slog.Level{
	"warning": slog.LevelWarn,
	"trace":   slog.LevelDebug,
}

// parseSlogLevel reads a level name ("debug", "WARN+2", "warning") or a raw
// slog level number.
func parseSlogLevel(value string, fallback slog.Level) slog.Level {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	if n, err := strconv.Atoi(value); err == nil {
		return slog.Level(n)
	}

	if level, ok := levelAliases[strings.ToLower(value)]; ok {
		return level
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}

	return level
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}

	return parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
}

// logRotation opens path through lumberjack with the log.* rotation keys.
func logRotation(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}
}

// configureLogger sends the default slog logger to a rotating file. An empty
// path means log.filename.
func configureLogger(logPath string, verbose bool) {
	for _, candidate := range []string{logPath, viper.GetString(logFilenameKey), defaultLogFilename} {
		if logPath = strings.TrimSpace(candidate); logPath != "" {
			break
		}
	}

	handler := slog.NewTextHandler(logRotation(logPath), &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel(verbose),
	})

	globalLogger = slog.New(handler).With("tool", configBaseName)
	slog.SetDefault(globalLogger)
}
