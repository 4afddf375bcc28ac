// Package cli implements the deployctl command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pendergraft/deployctl/internal/config"
)

var cfgFile string

// Execute runs the CLI. ctx is cancelled on SIGINT/SIGTERM by the caller.
func Execute(ctx context.Context, version string) error {
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	var flags deployFlags

	rootCmd := &cobra.Command{
		Use:   "deployctl",
		Short: "Deploy and verify EVM smart contracts",
		Long: `deployctl deploys a compiled contract to an EVM network, waits for
confirmations and registers its source code with the block explorer.

Running deployctl without a subcommand performs a deploy with the
settings from the environment and deployctl.toml.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "project config file (default: deployctl.toml)")
	bindDeployFlags(rootCmd, &flags)

	rootCmd.AddCommand(createDeployCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createNetworksCmd())
	rootCmd.AddCommand(createHistoryCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// loadRuntime loads the configuration and builds the logger every command uses.
func loadRuntime() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging, os.Stderr), nil
}

func setupLogger(cfg config.LoggingConfig, out *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}

	format := cfg.Format
	if format == "" {
		// Human output on a terminal, JSON when piped to a collector
		format = "json"
		if term.IsTerminal(int(out.Fd())) {
			format = "text"
		}
	}

	return slog.New(newHandler(format, out, opts))
}

func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
