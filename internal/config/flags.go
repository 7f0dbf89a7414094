package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/doccollection/internal/flagx"
)

// Flags lists the flags handled by parseFlags.
var Flags = []string{
	"-d", "-n", "-b", "-p", "-k", "-l", "-t",
	"-s3-access-key", "-s3-secret-key", "-s3-bucket", "-s3-region", "-s3-endpoint", "-s3-prefix",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   store driver (memory, bolt, sqlite, postgres, mongo, firestore)
//	-n string   DSN: file path or connection string
//	-b string   mongo database name
//	-p string   firestore project id
//	-k string   collection name
//	-l string   log level (debug, info, warn, error)
//	-t duration per-command timeout (e.g. "10s")
//	-s3-*       object storage settings for export/import
//
// Arguments not in Flags are ignored here; see flagx.Partition. Every flag
// takes a value, so boolean settings such as log_json come from the file or
// the environment only.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, Flags)

	fs := flag.NewFlagSet("collectionctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Driver, "d", config.Driver, "store driver")
	fs.StringVar(&config.DSN, "n", config.DSN, "DSN")
	fs.StringVar(&config.Database, "b", config.Database, "mongo database")
	fs.StringVar(&config.ProjectID, "p", config.ProjectID, "firestore project id")
	fs.StringVar(&config.Collection, "k", config.Collection, "collection name")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.Timeout, "t", config.Timeout, "per-command timeout")

	fs.StringVar(&config.S3AccessKey, "s3-access-key", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "s3-secret-key", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 key prefix")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
