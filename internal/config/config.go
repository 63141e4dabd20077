package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway   Gateway    `yaml:"gateway"`
	Contracts []Contract `yaml:"contracts"`
	Workload  Workload   `yaml:"workload"`
	Polling   Polling    `yaml:"polling"`
	Results   Results    `yaml:"results"`
}

type Gateway struct {
	URL             string `yaml:"url"`
	ChainID         string `yaml:"chain_id"`
	FromUser        string `yaml:"from_user"`
	FromApplication string `yaml:"from_application"`
}

type Contract struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

type Workload struct {
	Rounds     int         `yaml:"rounds"`
	Operations int         `yaml:"operations"`
	Workers    int         `yaml:"workers"`
	RatePerSec float64     `yaml:"rate_per_sec"`
	Ops        []Operation `yaml:"ops"`
}

type Operation struct {
	Contract string            `yaml:"contract"`
	Method   string            `yaml:"method"`
	Args     map[string]string `yaml:"args"`
	ReadOnly bool              `yaml:"readonly"`
	Weight   int               `yaml:"weight"`
}

// Polling controls the confirmation wait for write invocations. MaxPolls -1
// disables the bound and polls until a terminal state.
type Polling struct {
	InitialDelayMS int `yaml:"initial_delay_ms"`
	IntervalMS     int `yaml:"interval_ms"`
	MaxPolls       int `yaml:"max_polls"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required")
	}
	cfg.Gateway.URL = strings.TrimSuffix(cfg.Gateway.URL, "/")
	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("no contracts defined")
	}
	known := map[string]bool{}
	for i := range cfg.Contracts {
		c := &cfg.Contracts[i]
		if c.Name == "" {
			return fmt.Errorf("contract %d: name is required", i)
		}
		if c.Path == "" {
			return fmt.Errorf("contract %q: path is required", c.Name)
		}
		if !strings.HasPrefix(c.Path, "/") {
			c.Path = "/" + c.Path
		}
		if c.ID == "" {
			c.ID = c.Name
		}
		known[c.Name] = true
	}
	if len(cfg.Workload.Ops) == 0 {
		return fmt.Errorf("no workload ops defined")
	}
	for i := range cfg.Workload.Ops {
		op := &cfg.Workload.Ops[i]
		if op.Contract == "" {
			return fmt.Errorf("op %d: contract is required", i)
		}
		if !known[op.Contract] {
			return fmt.Errorf("op %d: unknown contract %q", i, op.Contract)
		}
		if op.Method == "" {
			return fmt.Errorf("op %d: method is required", i)
		}
		if op.Weight < 1 {
			op.Weight = 1
		}
	}
	if cfg.Workload.Rounds < 1 {
		cfg.Workload.Rounds = 1
	}
	if cfg.Workload.Operations < 1 {
		cfg.Workload.Operations = 10
	}
	if cfg.Workload.Workers < 1 {
		cfg.Workload.Workers = 1
	}
	if cfg.Polling.InitialDelayMS == 0 {
		cfg.Polling.InitialDelayMS = 200
	}
	if cfg.Polling.IntervalMS == 0 {
		cfg.Polling.IntervalMS = 500
	}
	if cfg.Polling.MaxPolls == 0 {
		cfg.Polling.MaxPolls = 120
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	return nil
}
