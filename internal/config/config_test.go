package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  host: db
  user: analyzer
  password: "p@ss word"
  name: requirements
llm:
  models: ["a/one:free", "b/two:free"]
  retryDelays: [100ms, 1s]
minio:
  endpoint: minio:9000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, []string{"a/one:free", "b/two:free"}, cfg.LLM.Models)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, time.Second}, cfg.LLM.RetryDelays)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, float32(0.5), *cfg.LLM.Temperature)
	require.NotNil(t, cfg.Server.RateLimit.RPS)
	assert.Equal(t, 1.0, *cfg.Server.RateLimit.RPS)
	assert.Equal(t, 5, cfg.Server.RateLimit.Burst)
	assert.Equal(t, 6000, cfg.LLM.MaxTokens)
	assert.Equal(t, "raw-outputs", cfg.Minio.BucketName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, "postgres://analyzer:p%40ss%20word@db:5432/requirements?sslmode=disable", cfg.PostgresDSN())
}

func TestLoad_ExplicitZerosAreKept(t *testing.T) {
	path := writeConfig(t, `
server:
  rateLimit:
    rps: 0
database:
  driver: sqlite
  path: ":memory:"
llm:
  temperature: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Server.RateLimit.RPS)
	assert.Zero(t, *cfg.Server.RateLimit.RPS, "rps 0 disables the limiter")
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Zero(t, *cfg.LLM.Temperature)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("MINIO_SECRET_KEY", "minio-env")

	path := writeConfig(t, `
database:
  host: localhost
  user: root
  password: from-file
  name: req
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "minio-env", cfg.Minio.SecretKey)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root:from-env@tcp(localhost:3306)/req?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	// sqlite still needs a path
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path")
}

func TestLoad_SQLite(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  path: ./data/analyzer.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./data/analyzer.db", cfg.Database.Path)
	assert.Empty(t, cfg.LLM.Models)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver": "database:\n  driver: oracle\n  host: h\n  name: n\n",
		"bad log level":  "database:\n  host: h\n  name: n\nlog:\n  level: loud\n",
		"blank model":    "database:\n  host: h\n  name: n\nllm:\n  models: [\"\"]\n",
		"mysql no host":  "database:\n  name: n\n",
		"negative rps":   "database:\n  host: h\n  name: n\nserver:\n  rateLimit:\n    rps: -1\n",
		"hot model":      "database:\n  host: h\n  name: n\nllm:\n  temperature: 2.5\n",
		"bad yaml":       "server: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", Path(""))
	t.Setenv("CONFIG_PATH", "/etc/analyzer.yaml")
	assert.Equal(t, "/etc/analyzer.yaml", Path(""))
	assert.Equal(t, "flag.yaml", Path("flag.yaml"))
}
