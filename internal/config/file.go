package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/doccollection/collection"
	"github.com/dmitrijs2005/doccollection/internal/flagx"
	"github.com/dmitrijs2005/doccollection/internal/timex"
)

// FileConfig is the DTO read from a config file. Timeout uses timex.Duration
// so both "30s" and integer nanoseconds are accepted.
//
// Only fields present in the file override the defaults.
type FileConfig struct {
	Driver         string             `json:"driver" yaml:"driver"`
	DSN            string             `json:"dsn" yaml:"dsn"`
	Database       string             `json:"database" yaml:"database"`
	ProjectID      string             `json:"project_id" yaml:"project_id"`
	Collection     string             `json:"collection" yaml:"collection"`
	Shapes         []collection.Shape `json:"shapes" yaml:"shapes"`
	LogLevel       string             `json:"log_level" yaml:"log_level"`
	LogJSON        *bool              `json:"log_json" yaml:"log_json"`
	Timeout        *timex.Duration    `json:"timeout" yaml:"timeout"`
	S3AccessKey    string             `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    string             `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket       string             `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string             `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string             `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix       string             `json:"s3_prefix" yaml:"s3_prefix"`
}

// readFile decodes path by extension: .json, or .yaml/.yml.
func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return nil, fmt.Errorf("unsupported config file %q", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// parseFile overlays the file named by -c or -config, if any, onto config.
// An unreadable or invalid file panics.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	c, err := readFile(path)
	if err != nil {
		panic(err)
	}

	setString(&config.Driver, c.Driver)
	setString(&config.DSN, c.DSN)
	setString(&config.Database, c.Database)
	setString(&config.ProjectID, c.ProjectID)
	setString(&config.Collection, c.Collection)
	if len(c.Shapes) > 0 {
		config.Shapes = c.Shapes
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.LogJSON != nil {
		config.LogJSON = *c.LogJSON
	}
	if c.Timeout != nil {
		config.Timeout = c.Timeout.Duration
	}
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
