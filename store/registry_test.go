package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	Backend
	cfg Config
}

func TestRegisterAndOpen(t *testing.T) {
	err := Register("fake-test", func(ctx context.Context, cfg Config) (Backend, error) {
		return &fakeBackend{cfg: cfg}, nil
	})
	require.NoError(t, err)

	err = Register("fake-test", nil)
	require.ErrorIs(t, err, ErrDriverExists)

	b, err := Open(context.Background(), Config{Driver: "fake-test", DSN: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", b.(*fakeBackend).cfg.DSN)
	assert.Contains(t, Drivers(), "fake-test")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "nope"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
