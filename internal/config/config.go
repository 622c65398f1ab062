// Package config resolves runtime configuration from, in increasing priority,
// built-in defaults, an optional config file, KNAPSACK_* environment variables
// and command-line flags.
//
// Keys are dotted ("anneal.cooling_rate"); the matching environment variable
// replaces dots with underscores ("KNAPSACK_ANNEAL_COOLING_RATE").
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/knapsackanneal/internal/anneal"
	"github.com/cwbudde/knapsackanneal/internal/catalog"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "KNAPSACK"

// Solver names.
const (
	SolverAnneal = "anneal"
	SolverMayfly = "mayfly"
)

// Config is the fully resolved configuration.
type Config struct {
	Items  ItemsConfig  `mapstructure:"items"`
	Anneal AnnealConfig `mapstructure:"anneal"`
	Mayfly MayflyConfig `mapstructure:"mayfly"`
	Run    RunConfig    `mapstructure:"run"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// ItemsConfig locates the item source and sets the catalog policies.
type ItemsConfig struct {
	Path          string `mapstructure:"path"`
	Capacity      int    `mapstructure:"capacity"`       // 0 = half the total weight
	ExpectedCount int    `mapstructure:"expected_count"` // 0 = no check
	Strict        bool   `mapstructure:"strict"`
}

// AnnealConfig holds the annealing parameters.
type AnnealConfig struct {
	InitialTemperature float64 `mapstructure:"initial_temperature"`
	CoolingRate        float64 `mapstructure:"cooling_rate"`
	Iterations         int     `mapstructure:"iterations"`
	Seed               int64   `mapstructure:"seed"` // 0 = time-based
}

// MayflyConfig sizes the baseline solver.
type MayflyConfig struct {
	Iterations int `mapstructure:"iterations"`
	Population int `mapstructure:"population"`
}

// RunConfig controls the driver.
type RunConfig struct {
	Runs       int    `mapstructure:"runs"` // 0 = until interrupted
	Solver     string `mapstructure:"solver"`
	LogPath    string `mapstructure:"log_path"`    // empty disables the result log
	TraceEvery int    `mapstructure:"trace_every"` // 0 disables traces

	// Patience stops the runs after that many restarts without a relative
	// gain of at least Threshold in the best value. 0 disables it.
	Patience  int     `mapstructure:"patience"`
	Threshold float64 `mapstructure:"threshold"`

	// MetricsAddr, when set, serves Prometheus metrics while runs execute.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// StoreConfig locates run records.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
	Save    bool   `mapstructure:"save"`
}

// ServerConfig configures the HTTP job server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in defaults: the production annealing triple,
// data.csv and log.txt in the working directory and a localhost server.
func Default() Config {
	p := anneal.DefaultParams()
	return Config{
		Items: ItemsConfig{Path: "data.csv"},
		Anneal: AnnealConfig{
			InitialTemperature: p.InitialTemperature,
			CoolingRate:        p.CoolingRate,
			Iterations:         p.Iterations,
		},
		Mayfly: MayflyConfig{Iterations: 200, Population: 20},
		Run:    RunConfig{Runs: 1, Solver: SolverAnneal, LogPath: "log.txt", Threshold: 0.001},
		Store:  StoreConfig{DataDir: "./data"},
		Server: ServerConfig{Addr: "localhost", Port: 8080},
		Log:    LogConfig{Level: "info"},
	}
}

// New returns a viper instance with every key defaulted and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	d := Default()

	v.SetDefault("items.path", d.Items.Path)
	v.SetDefault("items.capacity", d.Items.Capacity)
	v.SetDefault("items.expected_count", d.Items.ExpectedCount)
	v.SetDefault("items.strict", d.Items.Strict)
	v.SetDefault("anneal.initial_temperature", d.Anneal.InitialTemperature)
	v.SetDefault("anneal.cooling_rate", d.Anneal.CoolingRate)
	v.SetDefault("anneal.iterations", d.Anneal.Iterations)
	v.SetDefault("anneal.seed", d.Anneal.Seed)
	v.SetDefault("mayfly.iterations", d.Mayfly.Iterations)
	v.SetDefault("mayfly.population", d.Mayfly.Population)
	v.SetDefault("run.runs", d.Run.Runs)
	v.SetDefault("run.solver", d.Run.Solver)
	v.SetDefault("run.log_path", d.Run.LogPath)
	v.SetDefault("run.trace_every", d.Run.TraceEvery)
	v.SetDefault("run.patience", d.Run.Patience)
	v.SetDefault("run.threshold", d.Run.Threshold)
	v.SetDefault("run.metrics_addr", d.Run.MetricsAddr)
	v.SetDefault("store.data_dir", d.Store.DataDir)
	v.SetDefault("store.save", d.Store.Save)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds each named flag of fs to its config key. Flags missing from
// fs are ignored so commands can bind a shared table.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", flag, err)
		}
	}
	return nil
}

// Load reads configFile (if set) into v, decodes and validates the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := c.AnnealParams().Validate(); err != nil {
		return err
	}

	var errs []error
	if c.Items.Path == "" {
		errs = append(errs, errors.New("items.path cannot be empty"))
	}
	if c.Items.Capacity < 0 {
		errs = append(errs, fmt.Errorf("items.capacity cannot be negative, got %d", c.Items.Capacity))
	}
	if c.Items.ExpectedCount < 0 {
		errs = append(errs, fmt.Errorf("items.expected_count cannot be negative, got %d", c.Items.ExpectedCount))
	}
	if c.Run.Runs < 0 {
		errs = append(errs, fmt.Errorf("run.runs cannot be negative, got %d", c.Run.Runs))
	}
	if c.Run.Patience < 0 {
		errs = append(errs, fmt.Errorf("run.patience cannot be negative, got %d", c.Run.Patience))
	}
	if c.Run.Threshold < 0 {
		errs = append(errs, fmt.Errorf("run.threshold cannot be negative, got %g", c.Run.Threshold))
	}
	if c.Run.TraceEvery < 0 {
		errs = append(errs, fmt.Errorf("run.trace_every cannot be negative, got %d", c.Run.TraceEvery))
	}
	if c.Run.Solver != SolverAnneal && c.Run.Solver != SolverMayfly {
		errs = append(errs, fmt.Errorf("run.solver must be %q or %q, got %q", SolverAnneal, SolverMayfly, c.Run.Solver))
	}
	if c.Mayfly.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("mayfly.iterations must be positive, got %d", c.Mayfly.Iterations))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// AnnealParams returns the annealing parameters.
func (c *Config) AnnealParams() anneal.Params {
	return anneal.Params{
		InitialTemperature: c.Anneal.InitialTemperature,
		CoolingRate:        c.Anneal.CoolingRate,
		Iterations:         c.Anneal.Iterations,
	}
}

// CatalogOptions returns the loader options. The logger is left unset so the
// loader falls back to slog.Default().
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		Capacity:      c.Items.Capacity,
		ExpectedCount: c.Items.ExpectedCount,
		Strict:        c.Items.Strict,
	}
}
