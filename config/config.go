package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // netplay-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Session struct {
	DefaultMaxPlayers int    `yaml:"defaultMaxPlayers"`
	ReapInterval      string `yaml:"reapInterval"` // e.g. "30s"
	PingInterval      string `yaml:"pingInterval"` // e.g. "15s"
	SendBuffer        int    `yaml:"sendBuffer"`   // outbound queue per connection
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Logging Logging `yaml:"logging"`
	Session Session `yaml:"session"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "netplay-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Session.DefaultMaxPlayers <= 0 {
		c.Session.DefaultMaxPlayers = 4
	}
	if c.Session.SendBuffer <= 0 {
		c.Session.SendBuffer = 64
	}
	return nil
}

// ReapEvery parses session.reapInterval with a sane fallback.
func (c *Config) ReapEvery() time.Duration {
	return parseDurationOr(30*time.Second, c.Session.ReapInterval)
}

// PingEvery parses session.pingInterval with a sane fallback.
func (c *Config) PingEvery() time.Duration {
	return parseDurationOr(15*time.Second, c.Session.PingInterval)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
