package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".reviewgen/config.yaml"

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxRPS   float64       `yaml:"max_rps"`
	Burst    int           `yaml:"burst"`
}

type RateLimitConfig struct {
	Backend    string        `yaml:"backend"`
	Limit      int           `yaml:"limit"`
	Window     time.Duration `yaml:"window"`
	SweepEvery time.Duration `yaml:"sweep_every"`
	Identity   string        `yaml:"identity"`
	TrustProxy bool          `yaml:"trust_proxy"`
	KeyPrefix  string        `yaml:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type StatsConfig struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type StoresConfig struct {
	File     string `yaml:"file"`
	TimeZone string `yaml:"time_zone"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Stats     StatsConfig     `yaml:"stats"`
	Stores    StoresConfig    `yaml:"stores"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DefaultPath is ~/.reviewgen/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// Load reads YAML config, applies env overrides, then fills defaults.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "openai" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 20 * time.Second
	}
	if c.LLM.Burst == 0 {
		c.LLM.Burst = 1
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 6
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.SweepEvery == 0 {
		c.RateLimit.SweepEvery = time.Minute
	}
	if c.RateLimit.Identity == "" {
		c.RateLimit.Identity = "ip"
	}
	if c.RateLimit.KeyPrefix == "" {
		c.RateLimit.KeyPrefix = "reviewgen:ratelimit"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Stats.Backend == "" {
		c.Stats.Backend = "memory"
	}
	if c.Stats.Path == "" {
		c.Stats.Path = "./reviewgen-stats.db"
	}
	if c.Stats.KeyPrefix == "" {
		c.Stats.KeyPrefix = "reviewgen:stats"
	}
	if c.Stats.TTL == 0 {
		c.Stats.TTL = 24 * time.Hour
	}
	if c.Stores.TimeZone == "" {
		c.Stores.TimeZone = "Asia/Tokyo"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	if c.LLM.Timeout < 0 || c.LLM.MaxRPS < 0 {
		return errors.New("llm.timeout and llm.max_rps cannot be negative")
	}
	if c.RateLimit.Limit < 1 || c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.limit and ratelimit.window must be positive")
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit.backend must be memory or redis, got %q", c.RateLimit.Backend)
	}
	switch c.RateLimit.Identity {
	case "ip":
	case "token":
		if len(c.Session.Secret) < 16 {
			return errors.New("session.secret must be at least 16 bytes when ratelimit.identity is token")
		}
	default:
		return fmt.Errorf("ratelimit.identity must be ip or token, got %q", c.RateLimit.Identity)
	}
	switch c.Stats.Backend {
	case "none", "memory", "redis":
	case "sqlite":
		if strings.TrimSpace(c.Stats.Path) == "" {
			return errors.New("stats.path cannot be empty for the sqlite backend")
		}
	default:
		return fmt.Errorf("stats.backend must be none, memory, sqlite or redis, got %q", c.Stats.Backend)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.LLM.Timeout {
		return errors.New("server.write_timeout must exceed llm.timeout")
	}
	return nil
}

// ValidateGenerate enforces generate-specific requirements.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key cannot be empty")
	}
	return nil
}

// UsesRedis reports whether any component needs the Redis connection.
func (c *Config) UsesRedis() bool {
	return c.RateLimit.Backend == "redis" || c.Stats.Backend == "redis"
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.Provider, "REVIEWGEN_LLM_PROVIDER")
	setString(&c.LLM.APIKey, "REVIEWGEN_LLM_API_KEY")
	setString(&c.LLM.BaseURL, "REVIEWGEN_LLM_BASE_URL")
	setString(&c.LLM.Model, "REVIEWGEN_LLM_MODEL")
	setDuration(&c.LLM.Timeout, "REVIEWGEN_LLM_TIMEOUT")
	setFloat(&c.LLM.MaxRPS, "REVIEWGEN_LLM_MAX_RPS")
	setString(&c.RateLimit.Backend, "REVIEWGEN_RATELIMIT_BACKEND")
	setInt(&c.RateLimit.Limit, "REVIEWGEN_RATELIMIT_LIMIT")
	setDuration(&c.RateLimit.Window, "REVIEWGEN_RATELIMIT_WINDOW")
	setString(&c.RateLimit.Identity, "REVIEWGEN_RATELIMIT_IDENTITY")
	setBool(&c.RateLimit.TrustProxy, "REVIEWGEN_RATELIMIT_TRUST_PROXY")
	setString(&c.Redis.Addr, "REVIEWGEN_REDIS_ADDR")
	setString(&c.Redis.Password, "REVIEWGEN_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REVIEWGEN_REDIS_DB")
	setString(&c.Session.Secret, "REVIEWGEN_SESSION_SECRET")
	setString(&c.Stats.Backend, "REVIEWGEN_STATS_BACKEND")
	setString(&c.Stats.Path, "REVIEWGEN_STATS_PATH")
	setString(&c.Stores.File, "REVIEWGEN_STORES_FILE")
	setString(&c.Stores.TimeZone, "REVIEWGEN_STORES_TIME_ZONE")
	setString(&c.Server.Host, "REVIEWGEN_SERVER_HOST")
	setInt(&c.Server.Port, "REVIEWGEN_SERVER_PORT")
	setString(&c.Log.Level, "REVIEWGEN_LOG_LEVEL")
	setString(&c.Log.Format, "REVIEWGEN_LOG_FORMAT")

	if v, ok := os.LookupEnv("REVIEWGEN_SERVER_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		default:
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
