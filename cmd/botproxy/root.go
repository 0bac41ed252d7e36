package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lhdbsbz/botproxy/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "botproxy",
	Short:         "Relay capability requests between chat bots",
	Long:          "botproxy forwards commands to other bots' groups and relays their replies back to the requesting group.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("botproxy v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: $BOTPROXY_HOME/config.yaml or ~/.botproxy/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
}

// setupLogging writes text logs to stdout and, when logFile is set, to home/logs as well.
func setupLogging(logFile string) (func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stdout
	cleanup := func() {}
	if logFile != "" {
		dir := config.LogsDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		cleanup = func() { f.Close() }
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return cleanup, nil
}

// loadConfig reads the resolved config file. With create set, a missing file is
// first written from the embedded example with a generated token; otherwise the
// embedded example is read as is.
func loadConfig(create bool) (*config.Config, string, error) {
	config.SetPath(configPath)
	path := config.Path()
	if create {
		created, err := config.EnsureFile(path)
		if err != nil {
			return nil, path, err
		}
		if created {
			slog.Info("config created from example", "path", path)
		}
	}
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if create || !errors.Is(err, fs.ErrNotExist) {
		return nil, path, err
	}
	slog.Warn("config not found, using embedded example", "path", path)
	cfg, err = config.LoadFromExample()
	return cfg, path, err
}
