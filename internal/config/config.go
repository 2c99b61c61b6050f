package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is the static identity of one upstream language-model
// backend. The set is fixed configuration; nothing mutates it at runtime.
type ProviderConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"` // gemini | openai_compat | noop
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Priority      int    `yaml:"priority"` // lower is preferred
	SupportsIndic bool   `yaml:"supports_indic"`
}

// Key resolves the credential, preferring the inline value over the env var.
func (p ProviderConfig) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Dev struct {
		Mode bool `yaml:"mode"`
	} `yaml:"dev"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Providers []ProviderConfig `yaml:"providers"`
	Pipeline  struct {
		ChunkMaxChars  int           `yaml:"chunk_max_chars"`
		InterTaskDelay time.Duration `yaml:"inter_task_delay"`
		MaxRetries     int           `yaml:"max_retries"`
		CallTimeout    time.Duration `yaml:"call_timeout"`
	} `yaml:"pipeline"`
	Cooldowns struct {
		RateLimit time.Duration `yaml:"rate_limit"`
		Quota     time.Duration `yaml:"quota"`
		Auth      time.Duration `yaml:"auth"`
		Transient time.Duration `yaml:"transient"`
	} `yaml:"cooldowns"`
	RetryWaits struct {
		RateLimit time.Duration `yaml:"rate_limit"`
		Transient time.Duration `yaml:"transient"`
	} `yaml:"retry_waits"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.Dev.Mode = true
	cfg.Pipeline.ChunkMaxChars = 4000
	cfg.Pipeline.InterTaskDelay = 2 * time.Second
	cfg.Pipeline.MaxRetries = 3
	cfg.Pipeline.CallTimeout = 60 * time.Second
	cfg.Cooldowns.RateLimit = 70 * time.Second
	cfg.Cooldowns.Quota = 60 * time.Minute
	cfg.Cooldowns.Auth = 30 * time.Minute
	cfg.Cooldowns.Transient = 2 * time.Minute
	cfg.RetryWaits.RateLimit = 35 * time.Second
	cfg.RetryWaits.Transient = 5 * time.Second
	cfg.Log.Level = "info"
	cfg.Providers = []ProviderConfig{
		{Name: "google_primary", Type: "gemini", Model: "gemini-1.5-flash", APIKeyEnv: "GOOGLE_API_KEY", Priority: 1, SupportsIndic: true},
		{Name: "google_secondary", Type: "gemini", Model: "gemini-1.5-flash", APIKeyEnv: "GOOGLE_API_KEY_2", Priority: 2, SupportsIndic: true},
		{Name: "groq", Type: "openai_compat", Model: "llama-3.1-8b-instant", BaseURL: "https://api.groq.com/openai/v1", APIKeyEnv: "GROQ_API_KEY", Priority: 3},
		{Name: "together_ai", Type: "openai_compat", Model: "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo", BaseURL: "https://api.together.xyz/v1", APIKeyEnv: "TOGETHER_AI_API_KEY", Priority: 4},
		{Name: "openrouter", Type: "openai_compat", Model: "meta-llama/llama-3.1-8b-instruct:free", BaseURL: "https://openrouter.ai/api/v1", APIKeyEnv: "OPENROUTER_API_KEY", Priority: 5},
	}
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	if len(cfg.Providers) == 0 {
		return cfg, errors.New("no providers configured")
	}
	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return cfg, errors.New("provider with empty name")
		}
		if seen[p.Name] {
			return cfg, errors.New("duplicate provider name: " + p.Name)
		}
		seen[p.Name] = true
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DR_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("DR_DEV_MODE"); v != "" {
		cfg.Dev.Mode = parseBool(v, cfg.Dev.Mode)
	}
	if v := os.Getenv("DR_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DR_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("DR_CHUNK_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.ChunkMaxChars = n
		}
	}
	if v := os.Getenv("DR_INTER_TASK_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.InterTaskDelay = d
		}
	}
	if v := os.Getenv("DR_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxRetries = n
		}
	}
	if v := os.Getenv("DR_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.CallTimeout = d
		}
	}
	if v := os.Getenv("DR_COOLDOWN_RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cooldowns.RateLimit = d
		}
	}
	if v := os.Getenv("DR_COOLDOWN_QUOTA"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cooldowns.Quota = d
		}
	}
	if v := os.Getenv("DR_COOLDOWN_AUTH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cooldowns.Auth = d
		}
	}
	if v := os.Getenv("DR_COOLDOWN_TRANSIENT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cooldowns.Transient = d
		}
	}
	if v := os.Getenv("DR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
