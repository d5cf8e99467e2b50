package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json.lock")
	lock := NewFileLock(path, time.Second, 10*time.Millisecond)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339Nano, string(content))
	assert.NoError(t, err, "lock content should be a timestamp")

	require.NoError(t, release())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// releasing twice is harmless
	assert.NoError(t, release())
}

func TestFileLock_TimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json.lock")
	require.NoError(t, os.WriteFile(path, []byte("held"), 0o644))

	lock := NewFileLock(path, 50*time.Millisecond, 10*time.Millisecond)
	start := time.Now()
	_, err := lock.Acquire(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// foreign lock file is left in place
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestFileLock_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json.lock")
	lock := NewFileLock(path, 2*time.Second, 5*time.Millisecond)

	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = release()
	}()

	release2, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestFileLock_ContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLock(path, time.Second, 10*time.Millisecond).Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLock_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "orders.json.lock")
	_, err := NewFileLock(path, 20*time.Millisecond, 5*time.Millisecond).Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockTimeout))
}

func TestNewFileLock_Defaults(t *testing.T) {
	lock := NewFileLock("x.lock", 0, 0)
	assert.Equal(t, DefaultLockTimeout, lock.timeout)
	assert.Equal(t, DefaultLockPollInterval, lock.pollInterval)
	assert.Equal(t, "x.lock", lock.Path())
}
