package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL             = "https://openapi.api.govee.com/router/api/v1"
	DefaultPollIntervalSeconds = 60
	DefaultTimeoutSeconds      = 10
)

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level
	LogFile    string

	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`

	PollIntervalSeconds int `json:"poll_interval_seconds"`
	TimeoutSeconds      int `json:"timeout_seconds"`

	WebhookAddr  string `json:"webhook_addr"`
	DatabaseFile string `json:"database_file"`

	MQTTBroker      string `json:"mqtt_broker"`
	MQTTClientID    string `json:"mqtt_client_id"`
	MQTTTopicPrefix string `json:"mqtt_topic_prefix"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic"`
}

func Load() *Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to bridge config file")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Log file path (default stderr)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return &cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.WebhookAddr == "" {
		cfg.WebhookAddr = ":8099"
	}
	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = "data/govee-bridge.db"
	}
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = "govee-bridge"
	}
	if cfg.MQTTTopicPrefix == "" {
		cfg.MQTTTopicPrefix = "govee"
	}
}

func (cfg *Config) validate() {
	var problems []string

	if strings.TrimSpace(cfg.APIKey) == "" {
		problems = append(problems, "api_key is required")
	}
	if cfg.PollIntervalSeconds < 10 {
		problems = append(problems, "poll_interval_seconds must be at least 10")
	}
	if cfg.TimeoutSeconds < 1 {
		problems = append(problems, "timeout_seconds must be at least 1")
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, ", "))
	}
}
