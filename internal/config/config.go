// Package config provides configuration for the chat service.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Auth
	JWTSecretKey      string
	AccessTokenExpiry time.Duration

	// Database
	DatabaseURL string

	// Timeouts
	ToolTimeout  time.Duration
	LLMTimeout   time.Duration
	ProbeTimeout time.Duration

	// Sessions
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	TranscriptMaxTokens  int

	// Tools
	KnowledgeFile string
	PolicyFile    string

	// LLMMode switches every provider to the scripted mock client when "MOCK".
	LLMMode string

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]interface{}{
	"HTTP_PORT":                   8000,
	"JWT_SECRET_KEY":              "change-me",
	"ACCESS_TOKEN_EXPIRE_MINUTES": 60,
	"DATABASE_URL":                "file:chatbot.db?cache=shared&mode=rwc",
	"TOOL_TIMEOUT_MS":             20000,
	"LLM_TIMEOUT_MS":              120000,
	"PROBE_TIMEOUT_MS":            10000,
	"SESSION_TTL":                 "24h",
	"SESSION_SWEEP_INTERVAL":      "1m",
	"TRANSCRIPT_MAX_TOKENS":       12000,
	"KNOWLEDGE_FILE":              "knowledge/company_info.md",
	"POLICY_FILE":                 "",
	"LLM_MODE":                    "",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "console",
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then the
// environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPPort:             v.GetInt("HTTP_PORT"),
		JWTSecretKey:         v.GetString("JWT_SECRET_KEY"),
		AccessTokenExpiry:    time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		DatabaseURL:          v.GetString("DATABASE_URL"),
		ToolTimeout:          time.Duration(v.GetInt("TOOL_TIMEOUT_MS")) * time.Millisecond,
		LLMTimeout:           time.Duration(v.GetInt("LLM_TIMEOUT_MS")) * time.Millisecond,
		ProbeTimeout:         time.Duration(v.GetInt("PROBE_TIMEOUT_MS")) * time.Millisecond,
		SessionTTL:           v.GetDuration("SESSION_TTL"),
		SessionSweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
		TranscriptMaxTokens:  v.GetInt("TRANSCRIPT_MAX_TOKENS"),
		KnowledgeFile:        v.GetString("KNOWLEDGE_FILE"),
		PolicyFile:           v.GetString("POLICY_FILE"),
		LLMMode:              strings.ToUpper(v.GetString("LLM_MODE")),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
	}
}

// MockLLM reports whether the scripted LLM client should be used.
func (c *Config) MockLLM() bool {
	return c.LLMMode == "MOCK"
}
