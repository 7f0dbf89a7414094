package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "COLLECTIONCTL_"

var envFile = ".env"

// parseEnv loads envFile into the process environment when it exists and
// then overlays COLLECTIONCTL_* variables onto config. Variables already set
// in the environment win over the file.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	lookupString(&config.Driver, "DRIVER")
	lookupString(&config.DSN, "DSN")
	lookupString(&config.Database, "DATABASE")
	lookupString(&config.ProjectID, "PROJECT_ID")
	lookupString(&config.Collection, "COLLECTION")
	lookupString(&config.LogLevel, "LOG_LEVEL")
	lookupString(&config.S3AccessKey, "S3_ACCESS_KEY")
	lookupString(&config.S3SecretKey, "S3_SECRET_KEY")
	lookupString(&config.S3Bucket, "S3_BUCKET")
	lookupString(&config.S3Region, "S3_REGION")
	lookupString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	lookupString(&config.S3Prefix, "S3_PREFIX")

	if v, ok := lookup("LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.LogJSON = b
	}

	if v, ok := lookup("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.Timeout = d
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func lookupString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}
