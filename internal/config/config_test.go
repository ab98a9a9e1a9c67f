package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NODE_ENV", "PORT", "API_VERSION", "CORS_ORIGIN",
	"AUTOMATON_STORE", "AUTOMATON_DATA_DIR",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX",
	"SMTP_HOST", "SMTP_PORT", "GOOGLE_APP_EMAIL", "GOOGLE_APP_PASSWORD", "SMTP_FROM_NAME",
	"AUTOMATON_MAX_STEPS", "AUTOMATON_MAX_DURATION", "LOG_LEVEL",
}

// setEnv starts from an environment without any config variable, then applies env.
// Original values are restored when the test ends.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setEnv(t, nil)
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, ".automaton/automations", cfg.DataDir)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "automaton:", cfg.RedisPrefix)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "MessageMind", cfg.SMTPFrom)
	assert.Equal(t, 1000, cfg.MaxSteps)
	assert.Zero(t, cfg.MaxDuration)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.SMTPEnabled())
	assert.False(t, cfg.Production())
}

func TestFromEnv_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"NODE_ENV":               "production",
		"PORT":                   "8080",
		"API_VERSION":            "v2",
		"CORS_ORIGIN":            "https://app.example.com",
		"AUTOMATON_STORE":        "redis",
		"REDIS_ADDR":             "redis:6379",
		"REDIS_DB":               "3",
		"GOOGLE_APP_EMAIL":       "bot@example.com",
		"GOOGLE_APP_PASSWORD":    "secret",
		"AUTOMATON_MAX_STEPS":    "50",
		"AUTOMATON_MAX_DURATION": "90s",
		"LOG_LEVEL":              "debug",
	})
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "v2", cfg.APIVersion)
	assert.Equal(t, "https://app.example.com", cfg.CORSOrigin)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, 90*time.Second, cfg.MaxDuration.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestDuration_Decode(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{" 45 ", 45 * time.Second},
		{"1m30s", 90 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.Decode(tt.in))
			assert.Equal(t, tt.want, d.Std())
		})
	}

	var d Duration
	assert.Error(t, d.Decode("soon"))
}

func TestFromEnv_DurationInSeconds(t *testing.T) {
	setEnv(t, map[string]string{"AUTOMATON_MAX_DURATION": "30"})
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.MaxDuration.Std())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"Bad Port", map[string]string{"PORT": "http"}, "PORT"},
		{"Empty Port", map[string]string{"PORT": ""}, "PORT"},
		{"Port Range", map[string]string{"PORT": "70000"}, "invalid port"},
		{"Empty API Version", map[string]string{"API_VERSION": ""}, "api version"},
		{"Unknown Store", map[string]string{"AUTOMATON_STORE": "mongo"}, `unknown store "mongo"`},
		{"Bad Duration", map[string]string{"AUTOMATON_MAX_DURATION": "soon"}, "AUTOMATON_MAX_DURATION"},
		{"Negative Duration", map[string]string{"AUTOMATON_MAX_DURATION": "-5s"}, "max duration"},
		{"Negative Steps", map[string]string{"AUTOMATON_MAX_STEPS": "-1"}, "max steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	setEnv(t, map[string]string{"AUTOMATON_STORE": "memory"})
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("API_VERSION=v9\nAUTOMATON_STORE=file\n"), 0o644))

	// Variables already in the environment win over the file.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "v9", cfg.APIVersion)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	setEnv(t, nil)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
