package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccollection/collection"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "memory", c.Driver)
	assert.Equal(t, "records", c.Collection)
	assert.Equal(t, []collection.Shape{{Name: "record", Fields: []string{"name", "value"}}}, c.Shapes)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, "archive", c.S3Bucket)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Equal(t, "http://127.0.0.1:9000/", c.S3BaseEndpoint)
}

func TestLoadConfig_Layering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(file, []byte("driver: sqlite\ndsn: from-file.db\ncollection: people\n"), 0o600))

	origEnv := envFile
	envFile = filepath.Join(dir, "missing.env")
	t.Cleanup(func() { envFile = origEnv })

	t.Setenv(EnvPrefix+"DSN", "from-env.db")

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"collectionctl", "-c", file, "-k", "users"}

	c := LoadConfig()

	require.NotNil(t, c)
	assert.Equal(t, "sqlite", c.Driver)
	assert.Equal(t, "from-env.db", c.DSN)
	assert.Equal(t, "users", c.Collection)
}

func TestConfig_Views(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.Driver = "mongo"
	c.DSN = "mongodb://localhost"

	sc := c.Store()
	assert.Equal(t, "mongo", sc.Driver)
	assert.Equal(t, "mongodb://localhost", sc.DSN)
	assert.Equal(t, "doccollection", sc.Database)

	s3 := c.S3()
	assert.Equal(t, "admin", s3.AccessKey)
	assert.Equal(t, "http://127.0.0.1:9000/", s3.BaseEndpoint)
}
