// Package cli provides the blackgpt command-line interface.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/logging"
)

var (
	// Version is set at build time.
	Version = "1.0.0"

	// Global flags
	configPath string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blackgpt",
	Short: "Provenance-checked signal intelligence service",
	Long: `BlackGPT ingests analyst signals from legal public sources, rejects
anything that names an illicit source, routes signals through human review
and corroborates them against public news, social and market-data APIs.

Every state change is written to an append-only audit trail.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (env BLACKGPT_* always applies)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime reads configuration and builds the logger every long-running
// command shares. The returned func flushes the log file, if any.
func loadRuntime() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, closeLog := logging.Setup(cfg.Log)
	slog.SetDefault(log)
	return cfg, log, closeLog, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blackgpt %s\n", Version)
	},
}
