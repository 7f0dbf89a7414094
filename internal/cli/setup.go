package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/doccollection/archive"
	"github.com/dmitrijs2005/doccollection/collection"
	"github.com/dmitrijs2005/doccollection/internal/config"
	"github.com/dmitrijs2005/doccollection/internal/logging"
	"github.com/dmitrijs2005/doccollection/store"
)

// Test seams.
var (
	openBackend = store.Open
	newS3Client = archive.NewS3Client
)

// Session is an App together with the backend it owns.
type Session struct {
	*App
	backend store.Backend
}

// Open wires an App from cfg: logger, backend, accessor and, when a bucket
// is configured, the object storage archive. The backend's driver package
// must be linked in by the caller.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, level, cfg.LogJSON).With("driver", cfg.Driver)

	backend, err := openBackend(ctx, cfg.Store())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	acc, err := collection.New(backend, cfg.Collection, cfg.Shapes, collection.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	var arch Archiver
	if cfg.S3Bucket != "" {
		client, err := newS3Client(ctx, cfg.S3())
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		arch = archive.New(client, cfg.S3Bucket, cfg.S3Prefix)
	}

	return &Session{App: NewApp(acc, arch, logger, cfg.Timeout), backend: backend}, nil
}

// Close closes the backend.
func (s *Session) Close() error {
	return s.backend.Close()
}
