// Package bot wires the funnel engine, gateway and lead sinks into a
// runnable Telegram application.
package bot

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/funnelbot/bot/sheets"
	coreconfig "github.com/m3rciful/funnelbot/core/config"
	coredatabase "github.com/m3rciful/funnelbot/core/database"
)

// FunnelConfig holds the funnel parameters.
type FunnelConfig struct {
	// Channel is the public channel users must join, e.g. "@samtexsockss".
	Channel string `yaml:"channel" envconfig:"FUNNEL_CHANNEL"`
	// FollowupDelaySeconds is the wait before the feedback question; 0 -> 600.
	FollowupDelaySeconds int `yaml:"followup_delay_seconds" envconfig:"FUNNEL_FOLLOWUP_DELAY_SECONDS"`
}

// Config aggregates core, database and funnel configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Funnel   FunnelConfig        `yaml:"funnel"`
	Sheets   sheets.Config       `yaml:"sheets"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads configuration from a YAML file and environment variables.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalizeFunnel(&cfg.Funnel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeFunnel(cfg *FunnelConfig) error {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		return fmt.Errorf("funnel.channel is required")
	}
	if !strings.HasPrefix(cfg.Channel, "@") {
		cfg.Channel = "@" + cfg.Channel
	}
	if cfg.FollowupDelaySeconds < 0 {
		return fmt.Errorf("funnel.followup_delay_seconds must be >= 0")
	}
	if cfg.FollowupDelaySeconds == 0 {
		cfg.FollowupDelaySeconds = 600
	}
	return nil
}
