// Command uploader validates a local file, streams it to the blob store and
// registers it with the file registry. It also wraps the other registry calls.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"domex/api/internal/config"
	"domex/api/internal/logging"
	"domex/api/internal/registryclient"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Used for flags.
	cfgDir   string
	verbose  bool
	cfg      config.Config
	logger   *zap.Logger
	registry *registryclient.Client

	rootCmd = &cobra.Command{
		Use:           "uploader",
		Short:         "Upload domain assets and manage their registry records.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(cfgDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logCfg := cfg.Log
			if !verbose {
				logCfg.Level = "warn"
			}
			logCfg.Development = true
			logger, err = logging.New(logCfg)
			if err != nil {
				return err
			}
			registry = registryclient.New(cfg.Registry, logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", ".", "directory holding config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")

	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newStatsCmd())
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
