// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/edirooss/headend-server/internal/unit"
	"gopkg.in/yaml.v3"
)

// Config is the YAML server configuration.
type Config struct {
	ListenAddr string `yaml:"listen_address"`
	Port       string `yaml:"port"`
	RedisAddr  string `yaml:"redis_address"`

	// Per-kind unit name templates; %d is the channel ID.
	UnitTemplates map[string]string `yaml:"unit_templates"`

	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// AnalysisCacheTTLMs bounds how long one analysis sample is served.
	AnalysisCacheTTLMs int `yaml:"analysis_cache_ttl_ms"`
	// ControlSettleMs is the pause between a control verb and the re-probe.
	ControlSettleMs int `yaml:"control_settle_ms"`
}

// AnalyzerConfig locates the external stream analyzer.
type AnalyzerConfig struct {
	Bin          string `yaml:"bin"`
	QuickBin     string `yaml:"quick_bin"`
	FeedTemplate string `yaml:"feed_template"`
	WindowSec    int    `yaml:"window_sec"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// Load reads and decodes the config file, applying defaults for anything
// unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.AnalysisCacheTTLMs <= 0 {
		c.AnalysisCacheTTLMs = 2000
	}
	if c.ControlSettleMs <= 0 {
		c.ControlSettleMs = 500
	}
}

// UnitTemplateMap converts the raw template section into typed kinds,
// dropping unrecognized keys.
func (c *Config) UnitTemplateMap() map[unit.Kind]string {
	out := make(map[unit.Kind]string, len(c.UnitTemplates))
	for raw, tpl := range c.UnitTemplates {
		kind, err := unit.ParseKind(raw)
		if err != nil {
			continue
		}
		out[kind] = tpl
	}
	return out
}

func (c *Config) AnalysisCacheTTL() time.Duration {
	return time.Duration(c.AnalysisCacheTTLMs) * time.Millisecond
}

func (c *Config) ControlSettle() time.Duration {
	return time.Duration(c.ControlSettleMs) * time.Millisecond
}

func (c *AnalyzerConfig) Window() time.Duration {
	return time.Duration(c.WindowSec) * time.Second
}

func (c *AnalyzerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
