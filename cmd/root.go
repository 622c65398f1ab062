package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/knapsackanneal/internal/config"
)

var (
	logLevel   string
	configFile string
	logger     *slog.Logger

	// v collects defaults, the config file, KNAPSACK_* variables and flags.
	v = config.New()

	// cfg is resolved before every command runs.
	cfg *config.Config
)

// flagKeys maps command-line flags to config keys. Each command binds the
// subset it declares.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"items":        "items.path",
	"capacity":     "items.capacity",
	"expect-items": "items.expected_count",
	"strict":       "items.strict",
	"temp":         "anneal.initial_temperature",
	"rate":         "anneal.cooling_rate",
	"iters":        "anneal.iterations",
	"seed":         "anneal.seed",
	"mayfly-iters": "mayfly.iterations",
	"mayfly-pop":   "mayfly.population",
	"runs":         "run.runs",
	"solver":       "run.solver",
	"log":          "run.log_path",
	"trace-every":  "run.trace_every",
	"patience":     "run.patience",
	"threshold":    "run.threshold",
	"metrics-addr": "run.metrics_addr",
	"data-dir":     "store.data_dir",
	"save":         "store.save",
	"addr":         "server.addr",
	"port":         "server.port",
}

var rootCmd = &cobra.Command{
	Use:   "knapsackanneal",
	Short: "Simulated-annealing solver for the 0/1 knapsack problem",
	Long: `knapsackanneal approximates the 0/1 knapsack optimum with simulated
annealing. It runs repeated restarts from the command line, appends every
result to a text log and can serve optimization jobs over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
			return err
		}
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		// run prints one value per line on stdout, so its logs go to stderr.
		var out io.Writer = os.Stdout
		if cmd.Name() == "run" {
			out = os.Stderr
		}

		opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
		handler := slog.NewJSONHandler(out, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
