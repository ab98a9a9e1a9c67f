// Package config loads runtime settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds every setting of the service. Fields are read from the
// environment variable named by the envconfig tag.
type Config struct {
	Env        string `envconfig:"NODE_ENV" default:"development"`
	Port       int    `envconfig:"PORT" default:"5001"`
	APIVersion string `envconfig:"API_VERSION" default:"v1"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	Store         string `envconfig:"AUTOMATON_STORE" default:"memory"`
	DataDir       string `envconfig:"AUTOMATON_DATA_DIR" default:".automaton/automations"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"automaton:"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"GOOGLE_APP_EMAIL"`
	SMTPPassword string `envconfig:"GOOGLE_APP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM_NAME" default:"MessageMind"`

	MaxSteps    int      `envconfig:"AUTOMATON_MAX_STEPS" default:"1000"`
	MaxDuration Duration `envconfig:"AUTOMATON_MAX_DURATION" default:"0"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
}

// Duration accepts Go durations ("90s") or a bare number of seconds ("90").
type Duration time.Duration

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads the given .env files (".env" when none are given) without overriding
// variables already set, then builds the config from the environment.
// A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment, applying tag defaults.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("error processing environment configuration: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be corrected silently.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store))
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		errs = append(errs, errors.New("api version must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max steps must not be negative, got %d", c.MaxSteps))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max duration must not be negative, got %s", c.MaxDuration.Std()))
	}
	return errors.Join(errs...)
}

// SMTPEnabled reports whether credentials for the mail transport are present.
func (c Config) SMTPEnabled() bool {
	return c.SMTPUser != "" && c.SMTPPassword != ""
}

// Production reports whether NODE_ENV is production.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}
