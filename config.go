package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	Timezone   string `yaml:"timezone"`

	RetentionDays int `yaml:"retention_days"`
	QueueLimit    int `yaml:"queue_limit"`
	InspectorDays int `yaml:"inspector_days"`
	OperatorDays  int `yaml:"operator_days"`
	HistoryLimit  int `yaml:"history_limit"`
	RosterLimit   int `yaml:"roster_limit"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`
	ReportSchedule  string `yaml:"report_schedule"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideInt(&cfg.RetentionDays, "RETENTION_DAYS")
	envOverrideInt(&cfg.QueueLimit, "QUEUE_LIMIT")
	envOverrideInt(&cfg.InspectorDays, "INSPECTOR_DAYS")
	envOverrideInt(&cfg.OperatorDays, "OPERATOR_DAYS")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8503"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./qcdboard.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 90
	}
	if cfg.QueueLimit == 0 {
		cfg.QueueLimit = 200
	}
	if cfg.InspectorDays == 0 {
		cfg.InspectorDays = 7
	}
	if cfg.OperatorDays == 0 {
		cfg.OperatorDays = 30
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 200
	}
	if cfg.RosterLimit == 0 {
		cfg.RosterLimit = 50
	}

	if cfg.RetentionDays < 0 {
		log.Fatalf("invalid retention_days '%d': must be >= 0", cfg.RetentionDays)
	}
	if cfg.QueueLimit < 0 {
		log.Fatalf("invalid queue_limit '%d': must be >= 0", cfg.QueueLimit)
	}
	if cfg.InspectorDays < 0 || cfg.OperatorDays < 0 {
		log.Fatalf("invalid default window: inspector_days=%d operator_days=%d must be >= 0",
			cfg.InspectorDays, cfg.OperatorDays)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.ReportSchedule != "" {
		if cfg.SlackBotToken == "" || cfg.ReportChannelID == "" {
			log.Fatalf("report_schedule is set but slack_bot_token or report_channel_id is missing")
		}
	}

	switch cfg.LLMProvider {
	case "":
		// Narrative summaries disabled.
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	default:
		log.Fatalf("llm_provider must be '' or 'anthropic', got '%s'", cfg.LLMProvider)
	}

	return cfg
}

// RetentionCutoff returns the oldest finish date still shown on dashboards.
func (c Config) RetentionCutoff(now time.Time) time.Time {
	return dayStart(now.In(c.Location).AddDate(0, 0, -c.RetentionDays), c.Location)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
