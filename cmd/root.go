package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X github.com/procsim/procsim/cmd.version=...".
var version = "dev"

// Environment fallbacks for flags; a .env file in the working directory is honoured.
const (
	envLogLevel     = "PROCSIM_LOG_LEVEL"
	envOTelEndpoint = "PROCSIM_OTEL_ENDPOINT"
	envResultsDB    = "PROCSIM_RESULTS_DB"
)

var logLevel string // Log verbosity level

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:     "procsim",
	Short:   "Discrete-event simulator for process flows through constrained resources",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine: flags and the real environment still apply.
		_ = godotenv.Load()

		level := logLevel
		if !cmd.Flags().Changed("log") {
			level = envOr(envLogLevel, logLevel)
		}
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", level)
		}
		logrus.SetLevel(parsed)
	},
}

// envOr returns the environment value for key, or def when unset or empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
