// Package config handles configuration for collectionctl, including
// defaults, a JSON or YAML file overlay, environment variables and
// command-line flags.
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/doccollection/archive"
	"github.com/dmitrijs2005/doccollection/collection"
	"github.com/dmitrijs2005/doccollection/store"
)

// Config holds runtime settings for collectionctl.
//
// Fields:
//   - Driver / DSN / Database / ProjectID: backend selection, see store.Config.
//   - Collection / Shapes: the collection the REPL works on and its record shapes.
//   - LogLevel / LogJSON: logger settings.
//   - Timeout: deadline applied to every command.
//   - S3*: object storage settings for export and import.
type Config struct {
	Driver         string
	DSN            string
	Database       string
	ProjectID      string
	Collection     string
	Shapes         []collection.Shape
	LogLevel       string
	LogJSON        bool
	Timeout        time.Duration
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string
}

// LoadDefaults populates Config with development defaults: an in-process
// store and a single free-form shape.
func (c *Config) LoadDefaults() {
	c.Driver = "memory"
	c.DSN = ""
	c.Database = "doccollection"
	c.ProjectID = ""
	c.Collection = "records"
	c.Shapes = []collection.Shape{{Name: "record", Fields: []string{"name", "value"}}}
	c.LogLevel = "info"
	c.LogJSON = false
	c.Timeout = 30 * time.Second
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "archive"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Prefix = "doccollection"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, os.Args[1:])
	parseEnv(cfg)
	parseFlags(cfg, os.Args[1:])
	return cfg
}

// Store returns the backend settings.
func (c *Config) Store() store.Config {
	return store.Config{
		Driver:    c.Driver,
		DSN:       c.DSN,
		Database:  c.Database,
		ProjectID: c.ProjectID,
	}
}

// S3 returns the object storage settings.
func (c *Config) S3() archive.S3Config {
	return archive.S3Config{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	}
}
