package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLockTimeout is returned when the lock file could not be created within the timeout
var ErrLockTimeout = errors.New("filestore: timed out acquiring lock")

const (
	DefaultLockTimeout      = 5 * time.Second
	DefaultLockPollInterval = 100 * time.Millisecond
)

// FileLock is an advisory cross-process lock represented by the existence of
// a sentinel file. The file content is the acquisition time and is only
// informational.
type FileLock struct {
	path         string
	timeout      time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

// NewFileLock creates a lock guarded by the sentinel file at path
func NewFileLock(path string, timeout, pollInterval time.Duration) *FileLock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultLockPollInterval
	}
	return &FileLock{path: path, timeout: timeout, pollInterval: pollInterval, now: time.Now}
}

// Path returns the sentinel file path
func (l *FileLock) Path() string {
	return l.path
}

// Acquire creates the sentinel file, polling while another holder has it.
// The returned release func removes the file and is safe to call once.
func (l *FileLock) Acquire(ctx context.Context) (release func() error, err error) {
	deadline := time.NewTimer(l.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.tryCreate()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, l.path, l.timeout)
		case <-ticker.C:
		}
	}
}

func (l *FileLock) tryCreate() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("filestore: create lock %s: %w", l.path, err)
	}
	_, werr := f.WriteString(l.now().UTC().Format(time.RFC3339Nano))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(l.path)
		return false, fmt.Errorf("filestore: write lock %s: %w", l.path, errors.Join(werr, cerr))
	}
	return true, nil
}

func (l *FileLock) release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: release lock %s: %w", l.path, err)
	}
	return nil
}
