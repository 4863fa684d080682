package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/hackjudge/go/clients/devpost_client"
	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/judging"
	"github.com/mcdev12/hackjudge/go/internal/orchestrator"
	"github.com/mcdev12/hackjudge/go/internal/outbox"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// Config is the API server configuration. Deployment settings come from the
// environment; the event file then overrides the event-level sections.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	Store       string        `env:"STORE" envDefault:"postgres"`
	EventFile   string        `env:"JUDGING_CONFIG" envDefault:"config/judging.yaml"`
	CORSOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	Shutdown    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SeedRoster loads staff into the memory store at startup.
	SeedRoster string `env:"SEED_ROSTER"`
	// InProcessRelay publishes the memory store's outbox to JetStream.
	InProcessRelay bool `env:"OUTBOX_INPROCESS" envDefault:"false"`

	Auth         auth.Config
	Judging      judging.Config         `yaml:"judging"`
	Presentation presentation.Config    `yaml:"presentation"`
	Scheduler    orchestrator.Config    `yaml:"scheduler"`
	Devpost      devpost_client.Config  `yaml:"devpost"`
	Relay        outbox.Config          `yaml:"relay"`
	JetStream    outbox.JetStreamConfig `yaml:"jetstream"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.applyEventFile(cfg.EventFile); err != nil {
		return nil, err
	}

	if len(cfg.Judging.Criteria) == 0 {
		cfg.Judging.Criteria = judging.DefaultCriteria()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEventFile overlays the yaml file onto cfg. A missing file is fine.
func (c *Config) applyEventFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Store {
	case storePostgres, storeMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", storePostgres, storeMemory, c.Store)
	}
	if c.Judging.PresentationMinutes <= 0 {
		return fmt.Errorf("presentation_minutes must be positive")
	}
	if c.Judging.MinScore >= c.Judging.MaxScore {
		return fmt.Errorf("min_score %v must be below max_score %v", c.Judging.MinScore, c.Judging.MaxScore)
	}
	if c.InProcessRelay && c.Store != storeMemory {
		return fmt.Errorf("OUTBOX_INPROCESS is only supported with STORE=%s; run the relay binary for postgres", storeMemory)
	}
	return nil
}
