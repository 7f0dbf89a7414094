package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnvFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	orig := envFile
	envFile = path
	t.Cleanup(func() { envFile = orig })
}

func TestParseEnv(t *testing.T) {
	withEnvFile(t, "")

	t.Setenv(EnvPrefix+"DRIVER", "firestore")
	t.Setenv(EnvPrefix+"PROJECT_ID", "demo")
	t.Setenv(EnvPrefix+"LOG_JSON", "true")
	t.Setenv(EnvPrefix+"TIMEOUT", "2m")
	t.Setenv(EnvPrefix+"S3_PREFIX", "")

	var c Config
	c.LoadDefaults()
	require.NotPanics(t, func() { parseEnv(&c) })

	assert.Equal(t, "firestore", c.Driver)
	assert.Equal(t, "demo", c.ProjectID)
	assert.True(t, c.LogJSON)
	assert.Equal(t, 2*time.Minute, c.Timeout)
	assert.Equal(t, "doccollection", c.S3Prefix, "empty variables are ignored")
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	withEnvFile(t, "COLLECTIONCTL_COLLECTION=from_dotenv\nCOLLECTIONCTL_DATABASE=from_dotenv\n")
	t.Setenv(EnvPrefix+"DATABASE", "from_env")
	t.Cleanup(func() { os.Unsetenv(EnvPrefix + "COLLECTION") })

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "from_dotenv", c.Collection)
	assert.Equal(t, "from_env", c.Database)
}

func TestParseEnv_Panics(t *testing.T) {
	withEnvFile(t, "")

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv(EnvPrefix+"LOG_JSON", "maybe")
		var c Config
		assert.Panics(t, func() { parseEnv(&c) })
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv(EnvPrefix+"TIMEOUT", "soon")
		var c Config
		assert.Panics(t, func() { parseEnv(&c) })
	})
}
