// Command autodiff computes and observes the changes between sequences of items.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"znkr.io/datasource/autodiff/config"
	"znkr.io/datasource/autodiff/logging"
)

var (
	configFile string
	logLevel   string
	cfg        = config.Default()
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "autodiff [command]",
		Short:        "Computes and observes the changes between sequences of items",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadFromFile(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				c.Log.Level = logLevel
			}
			if err := logging.Configure(c.Log); err != nil {
				return fmt.Errorf("configuring logging: %w", err)
			}
			cfg = c
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "autodiff.toml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// itemFlags are the flags shared by all commands that read records.
type itemFlags struct {
	moves  bool
	format string
	key    string
	lang   string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.moves, "moves", true, "detect moved items")
	cmd.Flags().StringVar(&f.format, "format", "", "input format: lines, json or yaml (default: by file extension)")
	cmd.Flags().StringVar(&f.key, "key", "", "identity field of json and yaml items")
	cmd.Flags().StringVar(&f.lang, "lang", "", "highlighting language of reloaded items")
}

// resolve fills in all flags that weren't set on the command line from the configuration.
func (f *itemFlags) resolve(cmd *cobra.Command) {
	if !cmd.Flags().Changed("moves") {
		f.moves = cfg.FindMoves
	}
	if !cmd.Flags().Changed("format") {
		f.format = cfg.Format
	}
	if !cmd.Flags().Changed("key") {
		f.key = cfg.Key
	}
	if !cmd.Flags().Changed("lang") {
		f.lang = cfg.Lang
	}
}
