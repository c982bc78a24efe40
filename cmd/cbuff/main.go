package main

import (
	"fmt"
	"os"

	"circbuff/pkg/bufshell"
	"circbuff/pkg/cbconfig"
	"circbuff/pkg/circbuff"
	"circbuff/pkg/stream"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configFile string
	verbose    bool

	// Per-command overrides
	capacity int
	chunk    int
	history  int

	config *cbconfig.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cbuff",
		Short: "Drive a fixed-capacity circular byte buffer",
		Long: `cbuff exercises a circular byte buffer.

  cbuff shell   interactive commands against one buffer
  cbuff pump    copy stdin to stdout through a bounded pipe`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if config, err = loadConfig(cmd); err != nil {
				return err
			}
			if logger, err = buildLogger(config); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			stream.SetLogger(logger)
			bufshell.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (line directives, or .yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Run buffer commands interactively or from stdin",
		Args:  cobra.NoArgs,
		RunE:  runShell,
	}
	shellCmd.Flags().IntVar(&capacity, "capacity", circbuff.DefaultCapacity, "buffer capacity in bytes")
	shellCmd.Flags().IntVar(&history, "history", cbconfig.DefaultHistory, "number of commands kept by hist")

	pumpCmd := &cobra.Command{
		Use:   "pump",
		Short: "Copy stdin to stdout through a bounded pipe",
		Args:  cobra.NoArgs,
		RunE:  runPump,
	}
	pumpCmd.Flags().IntVar(&capacity, "capacity", circbuff.DefaultCapacity, "pipe capacity in bytes")
	pumpCmd.Flags().IntVar(&chunk, "chunk", cbconfig.DefaultChunk, "read and write size in bytes")

	rootCmd.AddCommand(shellCmd, pumpCmd)
	return rootCmd
}

// loadConfig reads --config if given and applies flags the user set.
func loadConfig(cmd *cobra.Command) (*cbconfig.Config, error) {
	c := cbconfig.Default()
	if configFile != "" {
		var err error
		if c, err = cbconfig.ParseConfig(configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("capacity") {
		c.Capacity = capacity
	}
	if flags.Changed("chunk") {
		c.Chunk = chunk
	}
	if flags.Changed("history") {
		c.History = history
	}
	if verbose {
		c.LogLevel = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func buildLogger(c *cbconfig.Config) (*zap.Logger, error) {
	lvl, err := c.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if lvl == zapcore.DebugLevel {
		zc.Development = true
	}
	return zc.Build()
}

func runShell(cmd *cobra.Command, args []string) error {
	cb, err := circbuff.New(config.Capacity)
	if err != nil {
		return err
	}
	logger.Info("starting shell", zap.Int("capacity", cb.Cap()), zap.Int("history", config.History))

	r := bufshell.NewShell(cb, config.History).Repl()
	r.Prompt = config.Prompt

	in := cmd.InOrStdin()
	if in == os.Stdin && readline.DefaultIsTerminal() {
		return r.RunInteractive()
	}
	return r.Run(in, cmd.OutOrStdout())
}

func runPump(cmd *cobra.Command, args []string) error {
	n, err := stream.Pump(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), config.Capacity, config.Chunk)
	logger.Info("pump done", zap.Int64("bytes", n), zap.Int("capacity", config.Capacity), zap.Int("chunk", config.Chunk))
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
