package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config holds connection settings. Each driver reads the fields it needs
// and ignores the rest.
type Config struct {
	Driver    string
	DSN       string // postgres/mongo connection string, sqlite/bolt file path
	Database  string // mongo database name
	ProjectID string // firestore project
}

// A Factory opens a backend of its driver type.
type Factory func(ctx context.Context, cfg Config) (Backend, error)

var (
	factories     = make(map[string]Factory)
	factoriesLock sync.Mutex
)

// Register registers a new storage driver.
func Register(driver string, factory Factory) error {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()

	if _, ok := factories[driver]; ok {
		return fmt.Errorf("%w: %s", ErrDriverExists, driver)
	}

	factories[driver] = factory
	return nil
}

// Open opens a backend using the factory registered for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	factoriesLock.Lock()
	factory, ok := factories[cfg.Driver]
	factoriesLock.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return factory(ctx, cfg)
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
