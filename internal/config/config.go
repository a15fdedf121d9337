package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int    `yaml:"port"`
	LogLevel        string `yaml:"log_level"`
	Timezone        string `yaml:"timezone"`
	OracleProvider  string `yaml:"oracle_provider"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	DatabaseURL     string `yaml:"database_url"`
	SeedICS         string `yaml:"seed_ics"`
	LinkBase        string `yaml:"link_base"`
	NatsURL         string `yaml:"nats_url"`
	NatsToken       string `yaml:"nats_token"`
	SlackBotToken   string `yaml:"slack_bot_token"`
	SlackChannel    string `yaml:"slack_channel"`
	DigestCron      string `yaml:"digest_cron"`
	APIToken        string `yaml:"api_token"`
	CORSOrigin      string `yaml:"cors_origin"`

	DefaultDurationMinutes int  `yaml:"default_duration_minutes"`
	LookupWindow           int  `yaml:"lookup_window"`
	HistoryTurns           int  `yaml:"history_turns"`
	BumpPastTimes          bool `yaml:"bump_past_times"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                   8760,
		LogLevel:               "info",
		Timezone:               "UTC",
		OracleProvider:         "anthropic",
		AnthropicModel:         "claude-sonnet-4-20250514",
		OpenAIModel:            "gpt-4o-mini",
		DefaultDurationMinutes: 60,
		LookupWindow:           10,
		HistoryTurns:           6,
		BumpPastTimes:          true,
	}
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Defaults()
	cfg.applyEnv()
	cfg.Normalize()
	return cfg
}

// FromFile reads a YAML file over the defaults. Environment variables take
// precedence over file values.
func FromFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envInt("SAMSON_PORT", c.Port)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.Timezone = envStr("SAMSON_TIMEZONE", c.Timezone)
	c.OracleProvider = envStr("ORACLE_PROVIDER", c.OracleProvider)
	c.AnthropicAPIKey = envStr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envStr("SAMSON_ANTHROPIC_MODEL", c.AnthropicModel)
	c.OpenAIAPIKey = envStr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = envStr("SAMSON_OPENAI_MODEL", c.OpenAIModel)
	c.DatabaseURL = envStr("DATABASE_URL", c.DatabaseURL)
	c.SeedICS = envStr("SAMSON_SEED_ICS", c.SeedICS)
	c.LinkBase = envStr("SAMSON_LINK_BASE", c.LinkBase)
	c.NatsURL = envStr("NATS_URL", c.NatsURL)
	c.NatsToken = envStr("NATS_TOKEN", c.NatsToken)
	c.SlackBotToken = envStr("SLACK_BOT_TOKEN", c.SlackBotToken)
	c.SlackChannel = envStr("SLACK_CHANNEL", c.SlackChannel)
	c.DigestCron = envStr("SAMSON_DIGEST_CRON", c.DigestCron)
	c.APIToken = envStr("SAMSON_API_TOKEN", c.APIToken)
	c.CORSOrigin = envStr("SAMSON_CORS_ORIGIN", c.CORSOrigin)
	c.DefaultDurationMinutes = envInt("SAMSON_DEFAULT_DURATION", c.DefaultDurationMinutes)
	c.LookupWindow = envInt("SAMSON_LOOKUP_WINDOW", c.LookupWindow)
	c.HistoryTurns = envInt("SAMSON_HISTORY_TURNS", c.HistoryTurns)
	c.BumpPastTimes = envBool("SAMSON_BUMP_PAST_TIMES", c.BumpPastTimes)
}

// Normalize replaces out-of-range values with defaults.
func (c *Config) Normalize() {
	d := Defaults()
	if c.Port <= 0 {
		c.Port = d.Port
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	c.OracleProvider = strings.ToLower(strings.TrimSpace(c.OracleProvider))
	switch c.OracleProvider {
	case "anthropic", "openai":
	default:
		c.OracleProvider = d.OracleProvider
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = d.DefaultDurationMinutes
	}
	if c.LookupWindow <= 0 {
		c.LookupWindow = d.LookupWindow
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = d.HistoryTurns
	}
}

// Location loads the configured IANA zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
