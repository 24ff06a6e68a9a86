// Command collabnet builds the yearly collaboration networks, computes
// centralities and rankings, and queries stored runs.
//
// Usage:
//
//	collabnet run --config collabnet.yaml --events 'data/**/*.json' --tenures editors.xlsx
//	collabnet build --events 'data/**/*.json' --gexf-dir out/networks --compress
//	collabnet export --run <id> --out results.xlsx
//	collabnet similar --year 2005 --kind com --node 7004212771 --k 10
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/collabnet"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "collabnet",
		Short: "Yearly co-authorship and acknowledgement networks",
		Long: `collabnet turns acknowledgement records into yearly author and
commenter networks, measures every person's position in them, and ranks
and correlates those positions over time.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite results database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	registerRun()
	registerBuild()
	registerExport()
	registerSimilar()
	registerRuns()
}

// loadConfig applies, in order: defaults, config file, environment, flags.
func loadConfig() (collabnet.Config, error) {
	cfg := collabnet.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = collabnet.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
