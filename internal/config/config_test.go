package config

import (
	"errors"
	"os"
	"os/exec"
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

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
http_server:
  address: "localhost:9999"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "storage/biblioteca.db", cfg.Storage.Path)
	assert.Equal(t, "localhost:9999", cfg.HTTPServer.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTPServer.ReadTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "biblioteca_session", cfg.Session.CookieName)
	assert.False(t, cfg.Session.Secure)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage:
  path: "from-file.db"
http_server:
  address: "localhost:9999"
`)
	t.Setenv("STORAGE_PATH", "from-env.db")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Storage.Path)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
storage:
  driver: "postgres"
http_server:
  address: ":8080"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "storage.dsn")
}

func TestLoad_PostgresDriverChoice(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
storage:
  driver: "postgres"
  dsn: "postgres://localhost/biblioteca"
http_server:
  address: ":8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PostgresDriverPgx, cfg.Storage.PostgresDriver)
	assert.Equal(t, 20, cfg.Storage.MaxOpenConns)

	t.Setenv("STORAGE_POSTGRES_DRIVER", "postgres")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, PostgresDriverPq, cfg.Storage.PostgresDriver)

	t.Setenv("STORAGE_POSTGRES_DRIVER", "odbc")
	_, err = Load(path)
	assert.ErrorContains(t, err, "postgres_driver")
}

func TestLoad_UnknownDriver(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage:
  driver: "oracle"
http_server:
  address: ":8080"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "does not exist")

	_, err = Load("")
	assert.ErrorContains(t, err, "config path is not set")
}

func TestMustLoad_PrefersEnvPath(t *testing.T) {
	path := writeConfig(t, `
env: "staging"
http_server:
  address: ":8080"
`)
	t.Setenv("CONFIG_PATH", path)

	cfg := MustLoad("ignored.yaml")
	assert.Equal(t, "staging", cfg.Env)
}

// TestMustLoad_ExitsOnBadConfig re-runs itself in a child process, since
// MustLoad ends the process instead of returning.
func TestMustLoad_ExitsOnBadConfig(t *testing.T) {
	if os.Getenv("BIBLIOTECA_MUSTLOAD_CHILD") == "1" {
		MustLoad(filepath.Join(os.TempDir(), "biblioteca-missing.yaml"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestMustLoad_ExitsOnBadConfig$")
	cmd.Env = append(os.Environ(), "BIBLIOTECA_MUSTLOAD_CHILD=1", "CONFIG_PATH=")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "child must exit non-zero, got %v", err)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), "cannot load config")
	assert.NotContains(t, string(out), "goroutine ", "no stack trace")
}
