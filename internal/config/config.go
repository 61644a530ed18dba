package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds the server settings. Every flag falls back to an environment
// variable, then to a built-in default.
type Config struct {
	Addr        string
	DataSource  string
	RateLimit   float64 // requests per second per client, 0 disables
	LoadTimeout time.Duration
}

const (
	defaultAddr        = ":8080"
	defaultDataSource  = "data/bandwidth-data.csv"
	defaultRateLimit   = 20
	defaultLoadTimeout = 30 * time.Second
)

// Load parses args (without the program name) on top of the environment.
func Load(args []string) (Config, error) {
	return load(args, os.LookupEnv, io.Discard)
}

func load(args []string, lookup func(string) (string, bool), output io.Writer) (Config, error) {
	env := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	rate, err := strconv.ParseFloat(env("BANDWIDTH_RATE", strconv.Itoa(defaultRateLimit)), 64)
	if err != nil {
		return Config{}, fmt.Errorf("BANDWIDTH_RATE: %w", err)
	}
	timeout, err := time.ParseDuration(env("BANDWIDTH_LOAD_TIMEOUT", defaultLoadTimeout.String()))
	if err != nil {
		return Config{}, fmt.Errorf("BANDWIDTH_LOAD_TIMEOUT: %w", err)
	}

	var cfg Config
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Addr, "addr", env("BANDWIDTH_ADDR", defaultAddr), "HTTP listen address")
	fs.StringVar(&cfg.DataSource, "data", env("BANDWIDTH_DATA", defaultDataSource), "Path or URL of the bandwidth table (.csv, .xlsx, .xls)")
	fs.Float64Var(&cfg.RateLimit, "rate", rate, "Requests per second allowed per client (0 disables)")
	fs.DurationVar(&cfg.LoadTimeout, "load-timeout", timeout, "Timeout for loading the dataset")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DataSource == "" {
		return Config{}, fmt.Errorf("data source must not be empty")
	}
	if cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("rate must not be negative, got %v", cfg.RateLimit)
	}
	if cfg.LoadTimeout <= 0 {
		return Config{}, fmt.Errorf("load-timeout must be positive, got %v", cfg.LoadTimeout)
	}
	return cfg, nil
}
