package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	DBConnectRetries uint64        `mapstructure:"DB_CONNECT_RETRIES"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL      string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	DefaultClinicID  string        `mapstructure:"DEFAULT_CLINIC_ID"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	FHIRBaseURL      string        `mapstructure:"FHIR_BASE_URL"`

	VitalsScanLimit       int `mapstructure:"VITALS_SCAN_LIMIT"`
	PrescriptionScanLimit int `mapstructure:"PRESCRIPTION_SCAN_LIMIT"`

	OTelExporterURL   string  `mapstructure:"OTEL_EXPORTER_URL"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_CONNECT_RETRIES",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"DEFAULT_CLINIC_ID", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "FHIR_BASE_URL", "VITALS_SCAN_LIMIT", "PRESCRIPTION_SCAN_LIMIT",
	"OTEL_EXPORTER_URL", "OTEL_SAMPLING_RATIO",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("FHIR_BASE_URL", "http://localhost:8000/fhir")
	v.SetDefault("VITALS_SCAN_LIMIT", 50)
	v.SetDefault("PRESCRIPTION_SCAN_LIMIT", 100)
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)

	// Unmarshal only sees env vars that are bound explicitly.
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate refuses configurations that would serve patient data without
// real authentication or with nonsensical limits.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
		}
		if c.IsProduction() && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_JWKS_URL is required in production; AUTH_SIGNING_KEY is for development and testing only")
		}
		if c.DefaultClinicID != "" {
			return fmt.Errorf("DEFAULT_CLINIC_ID is only honoured in development; unset it for ENV=%q", c.Env)
		}
	}

	if c.DefaultClinicID != "" {
		if _, err := uuid.Parse(c.DefaultClinicID); err != nil {
			return fmt.Errorf("DEFAULT_CLINIC_ID must be a UUID: %w", err)
		}
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.VitalsScanLimit <= 0 {
		return fmt.Errorf("VITALS_SCAN_LIMIT must be positive, got %d", c.VitalsScanLimit)
	}
	if c.PrescriptionScanLimit <= 0 {
		return fmt.Errorf("PRESCRIPTION_SCAN_LIMIT must be positive, got %d", c.PrescriptionScanLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1, got %g", c.OTelSamplingRatio)
	}

	return nil
}
