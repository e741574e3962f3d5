package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "aeolab.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, "AEO Evaluation Lab", cfg.OpenRouter.Title)
	assert.InDelta(t, 2, cfg.OpenRouter.RPS, 0.001)
	assert.Equal(t, 4, cfg.OpenRouter.Burst)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Models.ChatGPT)
	assert.Equal(t, "perplexity/sonar", cfg.Models.Perplexity)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Models.Default)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Models.Evaluator)
	assert.Equal(t, []string{"Sells Advisors"}, cfg.Brand.Names)
	assert.Equal(t, 2, cfg.Pipeline.JSONRetries)
	assert.Equal(t, 3, cfg.Pipeline.MaxCounterfactuals)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/aeolab
log:
  level: debug
  format: console
server:
  port: 9090
models:
  evaluator: anthropic/claude-3.5-haiku
brand:
  names:
    - Sells Advisors
    - sellsadvisors.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.Models.Evaluator)
	assert.Equal(t, []string{"Sells Advisors", "sellsadvisors.com"}, cfg.Brand.Names)
	// Defaults still apply for unset values
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Models.Default)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AEOLAB_STORE_DRIVER", "sqlite")
	t.Setenv("AEOLAB_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("AEOLAB_SERVER_PORT", "3000")
	t.Setenv("AEOLAB_OPENROUTER_KEY", "sk-or-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-or-test", cfg.OpenRouter.Key)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "aeolab.db"
	cfg.OpenRouter.RPS = 2
	cfg.Pipeline.JSONRetries = 2
	cfg.Pipeline.MaxCounterfactuals = 3
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_RequiresKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter.key is required")
}

func TestValidateRun_KeyPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenRouter.Key = "sk-or-test"

	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_MocksSkipKey(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenRouter.UseMocks = true

	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_BasicAuthPair(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.BasicAuthUser = "ops"

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")

	cfg.Server.BasicAuthPass = "secret"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidatePipelineBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.JSONRetries = 11
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "json_retries must be between 0 and 10")

	cfg.Pipeline.JSONRetries = 2
	cfg.Pipeline.MaxCounterfactuals = 0
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_counterfactuals must be between 1 and 10")

	cfg.Pipeline.MaxCounterfactuals = 3
	assert.NoError(t, cfg.Validate("serve"))
}
