package revdom

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the ambient application configuration (§10): where templates
// and static assets live, how the reference server binds, and the
// debug/production toggle §7 uses to decide how much error detail reaches
// the client.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Templates struct {
		Dir string `yaml:"dir"`
	} `yaml:"templates"`

	Static struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"static"`

	Session struct {
		Backend    string `yaml:"backend"` // "memory" or "sqlite"
		SQLitePath string `yaml:"sqlite_path"`
		QueueSize  int    `yaml:"queue_size"`
	} `yaml:"session"`

	Debug bool `yaml:"debug"`
}

// DefaultConfig returns sane defaults for local development, mirroring the
// teacher's DefaultConfig (internal/app) in spirit: a zero-argument
// constructor callers can override piecemeal.
func DefaultConfig() *Config {
	c := &Config{}
	c.Server.Addr = ":8080"
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Templates.Dir = "templates"
	c.Static.BaseURL = "/static/"
	c.Session.Backend = "memory"
	c.Session.SQLitePath = "revdom.db"
	c.Session.QueueSize = 32
	c.Debug = false
	return c
}

// LoadConfig reads a YAML config file at path, starting from
// DefaultConfig so an omitted section falls back to its default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}
