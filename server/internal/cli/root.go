package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/netpulse/netpulse/server/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string // overrides log.level when set
}

// NewRootCommand creates the root command for the netpulse CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "netpulse",
		Short: "NetPulse - simulated network fleet monitor",
		Long: `NetPulse simulates a fleet of network nodes whose status, latency and
connection counts drift every tick, and streams the resulting events and
alarms to a live dashboard.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist. A file that exists but fails to parse is an error.
func loadConfig(opts *RootOptions) (*config.Config, bool, error) {
	if opts.LogLevel != "" {
		if err := config.ValidateLogLevel(opts.LogLevel); err != nil {
			return nil, false, fmt.Errorf("--log-level: %w", err)
		}
	}
	cfg, err := config.Load(opts.ConfigPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("config file not found, using defaults", "path", opts.ConfigPath)
		cfg = config.Default()
	case err != nil:
		return nil, false, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, err == nil, nil
}

// requirePositive rejects non-positive integer flag values.
func requirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("--%s must be positive, got %d", name, v)
	}
	return nil
}
