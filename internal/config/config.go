package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Trace exporters selectable through telemetry.traces.
const (
	TracesNone   = "none"
	TracesStdout = "stdout"
	TracesOTLP   = "otlp"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level" toml:"log_level"`
	Traces       string `yaml:"traces" toml:"traces"`
	OTLPEndpoint string `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure" toml:"otlp_insecure"`
	Metrics      bool   `yaml:"metrics" toml:"metrics"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind" toml:"bind"`
	Port int    `yaml:"port" toml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name" toml:"runtime_name"`
	Environment string          `yaml:"environment" toml:"environment"`
	HTTP        HTTPConfig      `yaml:"http" toml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Bus         BusConfig       `yaml:"bus" toml:"bus"`
	LLM         LLMConfig       `yaml:"llm" toml:"llm"`
	Store       StoreConfig     `yaml:"store" toml:"store"`
	Bridge      BridgeConfig    `yaml:"bridge" toml:"bridge"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded" toml:"embedded"`
	Port           int      `yaml:"port" toml:"port"`
	StoreDir       string   `yaml:"store_dir" toml:"store_dir"`
	Servers        []string `yaml:"servers" toml:"servers"`
	Username       string   `yaml:"username" toml:"username"`
	Password       string   `yaml:"password" toml:"password"`
	Token          string   `yaml:"token" toml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure" toml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms" toml:"connect_timeout_ms"`
}

type LLMConfig struct {
	Mode      string `yaml:"mode" toml:"mode"` // gemini, openai, exec, mock
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Model     string `yaml:"model" toml:"model"`
	Command   string `yaml:"command" toml:"command"`
	TimeoutMS int    `yaml:"timeout_ms" toml:"timeout_ms"`
}

type StoreConfig struct {
	Path          string `yaml:"path" toml:"path"`
	RetentionDays int    `yaml:"retention_days" toml:"retention_days"`
	VacuumOnStart bool   `yaml:"vacuum_on_start" toml:"vacuum_on_start"`
}

type BridgeConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	QueueGroup    string `yaml:"queue_group" toml:"queue_group"`
	PublishEvents bool   `yaml:"publish_events" toml:"publish_events"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-reply",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			Traces:       TracesNone,
			OTLPEndpoint: "",
			OTLPInsecure: true,
			Metrics:      true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		LLM: LLMConfig{
			Mode:      "mock",
			BaseURL:   "https://generativelanguage.googleapis.com",
			Endpoint:  "/v1beta/models/gemini-2.0-flash:generateContent",
			APIKeyEnv: "GEMINI_API_KEY",
			Model:     "gemini-2.0-flash",
			TimeoutMS: 60000,
		},
		Store: StoreConfig{
			Path:          "./data/loqa-reply.db",
			RetentionDays: 0,
		},
		Bridge: BridgeConfig{
			Enabled:       false,
			QueueGroup:    "loqa-reply",
			PublishEvents: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	resolveAPIKey(&cfg.LLM)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode picks the format from the file extension; YAML is the default.
func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "REPLY_RUNTIME_NAME")
	overrideString(&cfg.Environment, "REPLY_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "REPLY_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "REPLY_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "REPLY_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.Traces, "REPLY_TELEMETRY_TRACES")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "REPLY_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "REPLY_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.Metrics, "REPLY_TELEMETRY_METRICS")
	overrideBool(&cfg.Bus.Embedded, "REPLY_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "REPLY_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "REPLY_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "REPLY_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "REPLY_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "REPLY_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "REPLY_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "REPLY_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "REPLY_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.LLM.Mode, "REPLY_LLM_MODE")
	overrideString(&cfg.LLM.BaseURL, "REPLY_LLM_BASE_URL")
	overrideString(&cfg.LLM.Endpoint, "REPLY_LLM_ENDPOINT")
	overrideString(&cfg.LLM.APIKey, "REPLY_LLM_API_KEY")
	overrideString(&cfg.LLM.APIKeyEnv, "REPLY_LLM_API_KEY_ENV")
	overrideString(&cfg.LLM.Model, "REPLY_LLM_MODEL")
	overrideString(&cfg.LLM.Command, "REPLY_LLM_COMMAND")
	overrideInt(&cfg.LLM.TimeoutMS, "REPLY_LLM_TIMEOUT_MS")
	overrideString(&cfg.Store.Path, "REPLY_STORE_PATH")
	overrideInt(&cfg.Store.RetentionDays, "REPLY_STORE_RETENTION_DAYS")
	overrideBool(&cfg.Store.VacuumOnStart, "REPLY_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Bridge.Enabled, "REPLY_BRIDGE_ENABLED")
	overrideString(&cfg.Bridge.QueueGroup, "REPLY_BRIDGE_QUEUE_GROUP")
	overrideBool(&cfg.Bridge.PublishEvents, "REPLY_BRIDGE_PUBLISH_EVENTS")
}

// resolveAPIKey reads the key from api_key_env when api_key is unset.
func resolveAPIKey(cfg *LLMConfig) {
	if cfg.APIKey != "" || cfg.APIKeyEnv == "" {
		return
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch strings.ToLower(cfg.Telemetry.Traces) {
	case "", TracesNone, TracesStdout:
	case TracesOTLP:
		if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) == "" {
			return errors.New("telemetry.otlp_endpoint must be set when telemetry.traces=otlp")
		}
	default:
		return errors.New("telemetry.traces must be one of none|stdout|otlp")
	}
	if cfg.Bridge.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bridge.QueueGroup == "" {
			return errors.New("bridge.queue_group must not be empty")
		}
	}
	switch cfg.LLM.Mode {
	case "mock":
	case "gemini":
		if cfg.LLM.BaseURL == "" || cfg.LLM.Endpoint == "" {
			return errors.New("llm.base_url and llm.endpoint must be set when mode=gemini")
		}
		if cfg.LLM.APIKey == "" {
			return errors.New("llm.api_key (or the variable named by llm.api_key_env) must be set when mode=gemini")
		}
	case "openai":
		if cfg.LLM.APIKey == "" {
			return errors.New("llm.api_key (or the variable named by llm.api_key_env) must be set when mode=openai")
		}
		if cfg.LLM.Model == "" {
			return errors.New("llm.model must be set when mode=openai")
		}
	case "exec":
		if cfg.LLM.Command == "" {
			return errors.New("llm.command must be set when mode=exec")
		}
	default:
		return errors.New("llm.mode must be one of gemini|openai|exec|mock")
	}
	if cfg.LLM.TimeoutMS <= 0 {
		return errors.New("llm.timeout_ms must be positive")
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	if cfg.Store.RetentionDays < 0 {
		return errors.New("store.retention_days must be >= 0")
	}
	return nil
}
