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
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "rvmk"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	sourceFlagName      = "source"
	targetFlagName      = "target"
	runParallelFlagName = "parallel"
	noTUIFlagName       = "no-tui"
	verboseFlagName     = "verbose"

	sourceDirConfigKey   = "paths.source"
	targetRootConfigKey  = "paths.target"
	runParallelConfigKey = "run.parallel"

	compilerConfigKey = "toolchain.compiler"
	objcopyConfigKey  = "toolchain.objcopy"
	objdumpConfigKey  = "toolchain.objdump"
	tripleConfigKey   = "toolchain.triple"

	defaultSourceDir   = "src/bin"
	defaultTargetRoot  = "target"
	defaultRunParallel = 4

	defaultCompiler = "cargo"
	defaultObjcopy  = "rust-objcopy"
	defaultObjdump  = "rust-objdump"
	defaultTriple   = "riscv64gc-unknown-none-elf"

	// releaseDir is the optimization-mode segment of the build output path.
	// The pipeline only ever does fully optimized, non-debug builds.
	releaseDir = "release"

	envPrefix = "RVMK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".rvmk.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(sourceDirConfigKey, defaultSourceDir)
	viper.SetDefault(targetRootConfigKey, defaultTargetRoot)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)

	viper.SetDefault(compilerConfigKey, defaultCompiler)
	viper.SetDefault(objcopyConfigKey, defaultObjcopy)
	viper.SetDefault(objdumpConfigKey, defaultObjdump)
	viper.SetDefault(tripleConfigKey, defaultTriple)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

// outputDir is the build output directory for the configured triple. It is
// keyed by (triple, mode) only; all variants share it.
func outputDir() string {
	return filepath.Join(viper.GetString(targetRootConfigKey), viper.GetString(tripleConfigKey), releaseDir)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
