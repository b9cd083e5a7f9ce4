package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/hylla/loggbok/internal/app"
	"github.com/hylla/loggbok/internal/config"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
	"github.com/hylla/loggbok/internal/platform"
	"github.com/hylla/loggbok/internal/render"
)

// version is overridden at release time via -ldflags.
var version = "dev"

// rootFlags stores the persistent flag values shared by every command.
type rootFlags struct {
	configPath string
	logDir     string
	appName    string
	devMode    bool
}

func main() {
	root := newRootCommand()
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the CLI command tree.
func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "loggbok",
		Short:         "Append-only personal record keeper",
		Long:          "loggbok keeps every fact about your days in append-only event logs\nand derives tasks, goals, and weekly summaries by replaying them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultDevMode := version == "dev"
	if envDev := strings.TrimSpace(os.Getenv("LOGGBOK_DEV_MODE")); envDev != "" {
		defaultDevMode = envDev == "1" || strings.EqualFold(envDev, "true")
	}
	appName := "loggbok"
	if envApp := strings.TrimSpace(os.Getenv("LOGGBOK_APP_NAME")); envApp != "" {
		appName = envApp
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&flags.logDir, "log-dir", "", "path to the primary log directory")
	root.PersistentFlags().StringVar(&flags.appName, "app", appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&flags.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(flags),
		newLogCommand(flags),
		newEventsCommand(flags),
		newTasksCommand(flags),
		newGoalsCommand(flags),
		newWeekCommand(flags),
		newTaskCommand(flags),
		newGoalCommand(flags),
		newSyncCommand(flags),
		newServeCommand(flags),
		newBoardCommand(flags),
	)
	return root
}

// cliRuntime bundles the resolved config and wired services for one
// command invocation.
type cliRuntime struct {
	cfg      config.Config
	logger   *charmLog.Logger
	store    *logstore.Store
	svc      *app.Service
	renderer *render.TerminalRenderer
	closeLog func() error
}

// close releases the optional dev log sink.
func (rt *cliRuntime) close() {
	if rt.closeLog != nil {
		_ = rt.closeLog()
	}
}

// buildRuntime resolves paths and config and wires the service stack.
// muteConsole routes diagnostics away from stderr while a TUI owns the
// terminal.
func buildRuntime(flags *rootFlags, muteConsole bool) (*cliRuntime, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: flags.appName,
		DevMode: flags.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := flags.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("LOGGBOK_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	logDir := flags.logDir
	if logDir == "" {
		if envPath := strings.TrimSpace(os.Getenv("LOGGBOK_LOG_DIR")); envPath != "" {
			logDir = envPath
		} else {
			logDir = paths.LogDir
		}
	}

	cfg, err := config.Load(configPath, config.Default(logDir))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if flags.logDir != "" {
		cfg.Log.Dir = flags.logDir
		cfg.Log.SyncDir = filepath.Join(flags.logDir, "sync")
	}

	logger, closeLog, err := newRuntimeLogger(cfg.Logging, flags.appName, flags.devMode, muteConsole)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}

	store, err := logstore.Open(cfg.Log.Dir, cfg.Log.SyncDir, logger)
	if err != nil {
		if closeLog != nil {
			_ = closeLog()
		}
		return nil, fmt.Errorf("open log store: %w", err)
	}
	merger := merge.New(store, logger)
	svc := app.NewService(store, merger, nil, logger)

	logger.Debug("runtime ready",
		"config_path", configPath, "log_dir", cfg.Log.Dir, "sync_dir", cfg.Log.SyncDir)

	return &cliRuntime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		svc:      svc,
		renderer: render.NewTerminalRenderer(cfg.Render.Style),
		closeLog: closeLog,
	}, nil
}

// newRuntimeLogger builds the diagnostics logger: styled text on stderr,
// or a logfmt dev file when the console must stay quiet or dev-file
// logging is on.
func newRuntimeLogger(cfg config.LoggingConfig, appName string, devMode, muteConsole bool) (*charmLog.Logger, func() error, error) {
	level, err := charmLog.ParseLevel(defaultLevel(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stderr
	formatter := charmLog.TextFormatter
	var closeFile func() error

	useDevFile := devMode && cfg.DevFile.Enabled
	if muteConsole || useDevFile {
		out = io.Discard
	}
	if useDevFile {
		path, pathErr := devLogFilePath(cfg.DevFile.Dir, appName, time.Now().UTC())
		if pathErr != nil {
			return nil, nil, pathErr
		}
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, nil, fmt.Errorf("create dev log dir: %w", mkErr)
		}
		file, openErr := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if openErr != nil {
			return nil, nil, fmt.Errorf("open dev log file: %w", openErr)
		}
		out = file
		formatter = charmLog.LogfmtFormatter
		closeFile = file.Close
	}

	logger := charmLog.NewWithOptions(out, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
	return logger, closeFile, nil
}

// defaultLevel maps an empty configured level to info.
func defaultLevel(level string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		return "info"
	}
	return level
}

// devLogFilePath resolves the dev log file for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".loggbok/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(cwd, baseDir)
	}
	fileName := fmt.Sprintf("%s-%s.log", appName, now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// newPathsCommand reports the resolved path set.
func newPathsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved config and data paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: flags.appName,
				DevMode: flags.devMode,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "app: %s\n", flags.appName)
			fmt.Fprintf(out, "dev_mode: %t\n", flags.devMode)
			fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}
