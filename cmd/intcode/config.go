package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/rpc"
)

// Config represents the configuration file structure. Files ending in .toml
// are decoded as TOML, anything else as JSON.
type Config struct {
	General GeneralConfig `json:"general" toml:"general"`
	Engine  EngineConfig  `json:"engine" toml:"engine"`
	Search  SearchConfig  `json:"search" toml:"search"`
	RPC     RPCConfig     `json:"rpc" toml:"rpc"`
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`
}

// GeneralConfig holds general application settings.
type GeneralConfig struct {
	DataDir  string `json:"data_dir" toml:"data_dir"`
	LogLevel string `json:"log_level" toml:"log_level"`
	LogFile  string `json:"log_file" toml:"log_file"`
}

// EngineConfig bounds each VM.
type EngineConfig struct {
	StepLimit  uint64 `json:"step_limit" toml:"step_limit"`
	DenseLimit int64  `json:"dense_limit" toml:"dense_limit"`
}

// SearchConfig holds phase search settings.
type SearchConfig struct {
	Cache      bool  `json:"cache" toml:"cache"`
	MaxRounds  int   `json:"max_rounds" toml:"max_rounds"`
	StepBudget int64 `json:"step_budget" toml:"step_budget"`
}

// RPCConfig holds JSON-RPC server settings.
type RPCConfig struct {
	Addr            string   `json:"addr" toml:"addr"`
	MaxSessions     int      `json:"max_sessions" toml:"max_sessions"`
	SessionIdleSec  int      `json:"session_idle_sec" toml:"session_idle_sec"`
	RequestTimeoutS int      `json:"request_timeout_sec" toml:"request_timeout_sec"`
	AllowedOrigins  []string `json:"allowed_origins" toml:"allowed_origins"`
	RateLimit       bool     `json:"rate_limit" toml:"rate_limit"`
	RateLimitRPS    float64  `json:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst  float64  `json:"rate_limit_burst" toml:"rate_limit_burst"`
	LogRequests     bool     `json:"log_requests" toml:"log_requests"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Addr    string `json:"addr" toml:"addr"`
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataDir:  "",
			LogLevel: "notice",
		},
		Engine: EngineConfig{
			StepLimit:  0,
			DenseLimit: intcode.DefaultDenseLimit,
		},
		Search: SearchConfig{
			Cache:     true,
			MaxRounds: 10_000,
		},
		RPC: RPCConfig{
			Addr:           "127.0.0.1:8920",
			MaxSessions:    1024,
			SessionIdleSec: 600,
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   100,
			RateLimitBurst: 200,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9120",
		},
	}
}

// defaultConfigPath returns the per-user config file location.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "intcode.toml"
	}
	return filepath.Join(dir, "intcode", "config.toml")
}

// loadConfig loads configuration from path. A missing file yields the
// defaults; found reports whether a file was read.
func loadConfig(path string) (cfg Config, found bool, err error) {
	cfg = defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.HasSuffix(path, ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, false, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, true, nil
}

// cliFlags are the command line settings. Those that mirror a config value
// override it only when set explicitly.
type cliFlags struct {
	configFile  string
	dataDir     string
	logLevel    string
	logFile     string
	stepLimit   uint64
	denseLimit  int64
	noCache     bool
	maxRounds   int
	rpcAddr     string
	maxSessions int
	metrics     bool
	metricsAddr string

	input   string
	mode    string
	phases  string
	target  int64
	render  bool
	version bool
}

func (f *cliFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configFile, "config", defaultConfigPath(), "Path to TOML or JSON configuration file")
	fs.StringVar(&f.dataDir, "data-dir", "", "Data directory for the result store (empty keeps results in memory)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, notice, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "Log to this file instead of stderr")
	fs.Uint64Var(&f.stepLimit, "step-limit", 0, "Instruction budget per invocation (0 = unbounded)")
	fs.Int64Var(&f.denseLimit, "dense-limit", 0, "Contiguous memory cells per VM")
	fs.BoolVar(&f.noCache, "no-cache", false, "Do not read or write stored search results")
	fs.IntVar(&f.maxRounds, "max-rounds", 0, "Round limit for feedback networks")
	fs.StringVar(&f.rpcAddr, "rpc-addr", "", "JSON-RPC server listen address")
	fs.IntVar(&f.maxSessions, "max-sessions", 0, "Maximum open RPC sessions")
	fs.BoolVar(&f.metrics, "enable-metrics", false, "Enable Prometheus metrics server")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Metrics server listen address")

	fs.StringVar(&f.input, "input", "", "Input values for run, comma separated")
	fs.StringVar(&f.mode, "mode", "serial", "Amplifier mode: serial or feedback")
	fs.StringVar(&f.phases, "phases", "", "Phase settings to permute (default depends on mode)")
	fs.Int64Var(&f.target, "target", 19690720, "Output sought by nounverb")
	fs.BoolVar(&f.render, "render", false, "Print the arcade screen")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
}

// apply copies explicitly set flags over cfg.
func (f *cliFlags) apply(cfg *Config, fs *flag.FlagSet) {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})

	if set["data-dir"] {
		cfg.General.DataDir = f.dataDir
	}
	if set["log-level"] {
		cfg.General.LogLevel = f.logLevel
	}
	if set["log-file"] {
		cfg.General.LogFile = f.logFile
	}
	if set["step-limit"] {
		cfg.Engine.StepLimit = f.stepLimit
	}
	if set["dense-limit"] {
		cfg.Engine.DenseLimit = f.denseLimit
	}
	if set["no-cache"] {
		cfg.Search.Cache = !f.noCache
	}
	if set["max-rounds"] {
		cfg.Search.MaxRounds = f.maxRounds
	}
	if set["rpc-addr"] {
		cfg.RPC.Addr = f.rpcAddr
	}
	if set["max-sessions"] {
		cfg.RPC.MaxSessions = f.maxSessions
	}
	if set["enable-metrics"] {
		cfg.Metrics.Enabled = f.metrics
	}
	if set["metrics-addr"] {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

// verbosity maps a level name to a commonlog verbosity.
func verbosity(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return 2, nil
	case "info":
		return 1, nil
	case "", "notice":
		return 0, nil
	case "warn", "warning":
		return -1, nil
	case "error":
		return -2, nil
	case "none", "off":
		return -4, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

func (c Config) engineOptions() []intcode.Option {
	return []intcode.Option{
		intcode.WithStepLimit(c.Engine.StepLimit),
		intcode.WithDenseLimit(c.Engine.DenseLimit),
	}
}

func (c Config) handlerConfig() rpc.HandlerConfig {
	hc := rpc.DefaultHandlerConfig()
	if c.Engine.StepLimit > 0 {
		hc.StepLimit = c.Engine.StepLimit
	}
	hc.DenseLimit = c.Engine.DenseLimit
	hc.MaxRounds = c.Search.MaxRounds
	if c.Search.StepBudget > 0 {
		hc.SearchBudget = c.Search.StepBudget
	}
	hc.MaxSessions = c.RPC.MaxSessions
	return hc
}

func (c Config) serverConfig() *rpc.ServerConfig {
	sc := rpc.DefaultServerConfig()
	sc.Address = c.RPC.Addr
	sc.AllowedOrigins = c.RPC.AllowedOrigins
	sc.EnableRateLimit = c.RPC.RateLimit
	sc.RateLimitRPS = c.RPC.RateLimitRPS
	sc.RateLimitBurst = c.RPC.RateLimitBurst
	sc.LogRequests = c.RPC.LogRequests
	sc.SessionIdle = time.Duration(c.RPC.SessionIdleSec) * time.Second
	sc.RequestTimeout = time.Duration(c.RPC.RequestTimeoutS) * time.Second
	return sc
}
