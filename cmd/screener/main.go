package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	useMock    bool
	runTasks   []string
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Technical screener for NSE stock universes",
	Long: `screener evaluates swing and momentum rule sets against every stock of the
Nifty 500 and F&O universes and reports, per stock, which signals are met.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run analysis tasks once and exit",
	Long: `Run the configured analysis tasks once, store the results, export them to
Excel and print each report.

Example usage:
  screener run                                  # all configured tasks
  screener run --task N500_SWING --task FNO_MOMENTUM`,
	RunE: runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on the cron schedule with Telegram commands and /metrics",
	RunE:  serve,
}

var reportCmd = &cobra.Command{
	Use:   "report TASK",
	Short: "Print the latest stored report of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  showReport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to the YAML config file (CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use generated price data instead of Yahoo Finance")
	runCmd.Flags().StringSliceVar(&runTasks, "task", nil, "Task name to run (repeatable); default all")

	rootCmd.AddCommand(runCmd, serveCmd, reportCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
