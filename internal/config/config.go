package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends accepted by SECTION_STORE and TEMPLATE_STORE.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	SectionStore     string        `mapstructure:"SECTION_STORE"`
	TemplateStore    string        `mapstructure:"TEMPLATE_STORE"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	WizardSessionTTL time.Duration `mapstructure:"WIZARD_SESSION_TTL"`
	WizardFlowFile   string        `mapstructure:"WIZARD_FLOW_FILE"`
	WizardNotePolicy string        `mapstructure:"WIZARD_NOTE_POLICY"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SECTION_STORE", StorePostgres)
	v.SetDefault("TEMPLATE_STORE", StoreMemory)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("WIZARD_SESSION_TTL", "2h")
	v.SetDefault("WIZARD_NOTE_POLICY", "preserve")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "SECTION_STORE", "TEMPLATE_STORE",
		"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
		"CORS_ORIGINS", "WIZARD_SESSION_TTL", "WIZARD_FLOW_FILE", "WIZARD_NOTE_POLICY",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in development mode; every request is authenticated as an admin coach")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	switch c.SectionStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("SECTION_STORE must be %q, %q or %q, got %q", StorePostgres, StoreRedis, StoreMemory, c.SectionStore)
	}
	switch c.TemplateStore {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("TEMPLATE_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, c.TemplateStore)
	}
	if (c.SectionStore == StoreRedis || c.TemplateStore == StoreRedis) && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when a redis store is selected")
	}
	switch c.WizardNotePolicy {
	case "", "preserve", "discard":
	default:
		return fmt.Errorf("WIZARD_NOTE_POLICY must be \"preserve\" or \"discard\", got %q", c.WizardNotePolicy)
	}
	if c.WizardSessionTTL <= 0 {
		return fmt.Errorf("WIZARD_SESSION_TTL must be positive, got %s", c.WizardSessionTTL)
	}
	return nil
}
