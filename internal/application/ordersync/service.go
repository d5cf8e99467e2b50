package ordersync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// Trigger names what started a refresh cycle
type Trigger string

const (
	TriggerColdStart Trigger = "cold_start"
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Recorder receives refresh instrumentation
type Recorder interface {
	ObserveRefresh(trigger string, duration time.Duration, err error)
	ObserveMerge(added, updated, unchanged int)
	SetStoreSize(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(string, time.Duration, error) {}
func (nopRecorder) ObserveMerge(int, int, int)                  {}
func (nopRecorder) SetStoreSize(int)                            {}

// RefreshStats summarizes one refresh cycle. Total is the size of the
// fetched batch after normalization.
type RefreshStats struct {
	Total     int `json:"total"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// ListQuery selects and orders stored orders
type ListQuery struct {
	Filter order.Filter
	SortBy order.SortField
	Desc   bool
}

// Service runs refresh cycles and answers order queries
type Service struct {
	source   order.Source
	repo     order.Repository
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a Service. recorder may be nil.
func NewService(source order.Source, repo order.Repository, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		repo:     repo,
		recorder: recorder,
		logger:   logger.Named("ordersync"),
	}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

// Refresh fetches the current batch and merges it into the store. On a merge
// failure the returned stats still describe the in-memory classification.
func (s *Service) Refresh(ctx context.Context, trigger Trigger) (stats RefreshStats, err error) {
	// HTTP-triggered cycles inherit the request logger and its request id
	cycleLogger := logger.FromContext(ctx, s.logger).With(
		zap.String("cycle_id", uuid.NewString()),
		zap.String("trigger", string(trigger)),
	)
	start := time.Now()
	defer func() {
		s.recorder.ObserveRefresh(string(trigger), time.Since(start), err)
	}()

	cycleLogger.Info("Refresh started")

	orders, err := s.source.FetchBatch(ctx)
	if err != nil {
		cycleLogger.Error("Refresh failed while fetching", zap.Error(err))
		return RefreshStats{}, fmt.Errorf("fetch orders: %w", err)
	}
	stats.Total = len(orders)

	result, err := s.repo.Merge(ctx, orders)
	stats.Added, stats.Updated, stats.Unchanged = result.Added, result.Updated, result.Unchanged
	s.recorder.ObserveMerge(result.Added, result.Updated, result.Unchanged)
	if n, cerr := s.repo.Count(ctx); cerr == nil {
		s.recorder.SetStoreSize(n)
	}
	if result.Skipped > 0 {
		cycleLogger.Warn("Invalid orders skipped during merge", zap.Int("skipped", result.Skipped))
	}
	if err != nil {
		cycleLogger.Error("Refresh failed while persisting", zap.Error(err))
		return stats, fmt.Errorf("merge orders: %w", err)
	}

	cycleLogger.Info("Refresh completed",
		zap.Int("total", stats.Total),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
		zap.Duration("duration", time.Since(start)),
	)
	return stats, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ListOrders returns stored orders matching q
func (s *Service) ListOrders(ctx context.Context, q ListQuery) ([]order.Order, error) {
	orders, err := s.repo.FindAll(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = order.SortByOrderID
	}
	order.Sort(orders, sortBy, q.Desc)
	return orders, nil
}

// GetOrder returns one order or order.ErrOrderNotFound
func (s *Service) GetOrder(ctx context.Context, id string) (order.Order, error) {
	return s.repo.FindByID(ctx, id)
}

// Summarize aggregates the orders matching filter
func (s *Service) Summarize(ctx context.Context, filter order.Filter) (order.Summary, error) {
	orders, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return order.Summary{}, err
	}
	return order.Summarize(orders), nil
}

// StoreSize loads the store if needed and returns the number of orders
func (s *Service) StoreSize(ctx context.Context) (int, error) {
	if err := s.repo.EnsureLoaded(ctx); err != nil {
		return 0, err
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	s.recorder.SetStoreSize(n)
	return n, nil
}
