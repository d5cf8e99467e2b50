package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
)

// Store is the file-backed order repository. It keeps the full collection in
// memory and rewrites the backing JSON document whenever a merge changes it.
//
// Merges are serialized: one merge classifies, mutates and persists before
// the next one starts. Readers only take the map lock and are never blocked
// by disk I/O.
type Store struct {
	path   string
	lock   *FileLock
	logger *zap.Logger
	now    func() time.Time

	loadOnce sync.Once
	mergeMu  sync.Mutex

	mu     sync.RWMutex
	orders map[string]order.Order
}

// Option configures a Store
type Option func(*Store)

// WithLockTiming overrides lock acquisition timeout and poll interval
func WithLockTiming(timeout, pollInterval time.Duration) Option {
	return func(s *Store) {
		s.lock = NewFileLock(s.path+".lock", timeout, pollInterval)
	}
}

// WithClock overrides the time source used to stamp changed orders
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store backed by the JSON file at path. The lock sentinel
// lives next to it as path + ".lock".
func New(path string, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:   path,
		logger: logger.Named("filestore"),
		now:    time.Now,
		orders: make(map[string]order.Order),
	}
	s.lock = NewFileLock(path+".lock", DefaultLockTimeout, DefaultLockPollInterval)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureLoaded reads the backing file on first use. A missing or unparseable
// file leaves the store empty and is not an error.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.loadOnce.Do(s.load)
	return nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("Order file not found, starting empty", zap.String("path", s.path))
		} else {
			s.logger.Error("Failed to read order file, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	var records []order.Order
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Error("Failed to parse order file, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	loaded := make(map[string]order.Order, len(records))
	for _, o := range records {
		if o.OrderID == "" {
			s.logger.Warn("Skipping stored order without id")
			continue
		}
		if o.Products == nil {
			o.Products = []order.Product{}
		}
		loaded[o.OrderID] = o
	}

	s.mu.Lock()
	s.orders = loaded
	s.mu.Unlock()

	s.logger.Info("Orders loaded", zap.String("path", s.path), zap.Int("count", len(loaded)))
}

// Merge classifies each incoming order against the stored copy and persists
// the collection if anything was added or updated. Orders failing
// order.Validate are logged and counted as skipped. When persisting fails the
// in-memory changes are kept and the error is returned.
func (s *Store) Merge(ctx context.Context, incoming []order.Order) (order.UpdateResult, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return order.UpdateResult{}, err
	}

	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	var result order.UpdateResult
	now := s.now()

	s.mu.Lock()
	for _, o := range incoming {
		if err := o.Validate(); err != nil {
			s.logger.Warn("Skipping invalid order", zap.String("order_id", o.OrderID), zap.Error(err))
			result.Skipped++
			continue
		}
		existing, ok := s.orders[o.OrderID]
		switch {
		case !ok:
			s.orders[o.OrderID] = o.Clone().Stamp(now)
			result.Added++
		case order.HasChanged(existing, o):
			s.orders[o.OrderID] = o.Clone().Stamp(now)
			result.Updated++
		default:
			result.Unchanged++
		}
	}
	var snapshot []order.Order
	if result.Added+result.Updated > 0 {
		snapshot = s.sortedLocked(order.Filter{})
	}
	s.mu.Unlock()

	if snapshot == nil {
		return result, nil
	}
	if err := s.persist(ctx, snapshot); err != nil {
		return result, err
	}

	s.logger.Debug("Orders persisted",
		zap.String("path", s.path),
		zap.String("lock", s.lock.Path()),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("total", len(snapshot)),
	)
	return result, nil
}

// FindAll returns orders matching filter, sorted by order id
func (s *Store) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(filter), nil
}

// FindByID returns the order with id or order.ErrOrderNotFound
func (s *Store) FindByID(ctx context.Context, id string) (order.Order, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return order.Order{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// Count returns the number of stored orders
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.EnsureLoaded(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders), nil
}

func (s *Store) sortedLocked(filter order.Filter) []order.Order {
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// persist writes snapshot under the file lock. The lock is always released.
func (s *Store) persist(ctx context.Context, snapshot []order.Order) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create dir %s: %w", dir, err)
	}

	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil {
			s.logger.Error("Failed to release order file lock", zap.String("lock", s.lock.Path()), zap.Error(rerr))
			if err == nil {
				err = rerr
			}
		}
	}()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode orders: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers see either the old or the new document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", path, err)
	}
	return nil
}

var _ order.Repository = (*Store)(nil)
