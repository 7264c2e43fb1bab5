package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	MedDCacheTTL time.Duration `mapstructure:"MEDD_CACHE_TTL"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`

	RulesFile string `mapstructure:"RULES_FILE"`

	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`

	FeatureVaxCare3Flow        bool `mapstructure:"FEATURE_VAXCARE3_FLOW"`
	FeatureDisableDuplicateRSV bool `mapstructure:"FEATURE_DISABLE_DUPLICATE_RSV"`
	FeatureRPRD                bool `mapstructure:"FEATURE_RPRD"`
}

var keys = []string{
	"PORT", "ENV", "LOG_FORMAT", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "MEDD_CACHE_TTL",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER",
	"RULES_FILE",
	"BODY_LIMIT", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"FEATURE_VAXCARE3_FLOW", "FEATURE_DISABLE_DUPLICATE_RSV", "FEATURE_RPRD",
}

// Load reads configuration from the environment and an optional .env file
// in the working directory. DATABASE_URL is required.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MEDD_CACHE_TTL", "12h")
	v.SetDefault("AUTH_ISSUER", "vaxhub")
	v.SetDefault("BODY_LIMIT", "256K")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to serve with. Outside
// development a JWT signing key is required, since dev auth grants admin to
// every request.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MedDCacheTTL <= 0 {
		return fmt.Errorf("MEDD_CACHE_TTL must be positive, got %s", c.MedDCacheTTL)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"text\", got %q", c.LogFormat)
	}
	return nil
}
