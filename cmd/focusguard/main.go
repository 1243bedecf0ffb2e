// Package main is the CLI entry point for focusguard.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusguard",
	Short: "Focus session blocker - interrupts distracting apps and sites",
	Long: `focusguard decides, for every foreground app change, whether the app
or the site shown in a browser is blocked by the current focus session.
Blocked surfaces are covered by an overlay until the user acknowledges it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	configPath  string
	dataDirFlag string
	storeKind   string
	verbose     bool
	jsonOutput  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default depends on execution mode)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Preference store: file or encrypted")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}
