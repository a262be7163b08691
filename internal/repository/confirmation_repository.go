package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const (
	fieldOpens        = "opens"
	fieldLastOpenedAt = "last_opened_at"
	fieldConfirmedAt  = "confirmed_at"
)

// MemoryConfirmationStore keeps tracking state in process memory.
type MemoryConfirmationStore struct {
	mu      sync.RWMutex
	entries map[string]*models.TrackingStatus
}

// NewMemoryConfirmationStore constructs an empty store.
func NewMemoryConfirmationStore() *MemoryConfirmationStore {
	return &MemoryConfirmationStore{entries: make(map[string]*models.TrackingStatus)}
}

func (s *MemoryConfirmationStore) entry(id string) *models.TrackingStatus {
	e, ok := s.entries[id]
	if !ok {
		e = &models.TrackingStatus{ID: id}
		s.entries[id] = e
	}
	return e
}

// RecordOpen counts an open of the report identified by id.
func (s *MemoryConfirmationStore) RecordOpen(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(id)
	e.Opens++
	e.LastOpenedAt = &at
	return nil
}

// Confirm stores the confirmation time, replacing any earlier one.
func (s *MemoryConfirmationStore) Confirm(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(id).ConfirmedAt = &at
	return nil
}

// Status returns a copy of what is known about id.
func (s *MemoryConfirmationStore) Status(ctx context.Context, id string) (models.TrackingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return models.TrackingStatus{}, appErrors.Clone(appErrors.ErrNotFound, "no tracking events for "+id)
	}
	return *e, nil
}

// Close drops all state.
func (s *MemoryConfirmationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*models.TrackingStatus)
	return nil
}

// RedisConfirmationStore keeps tracking state in one Redis hash per report.
type RedisConfirmationStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisConfirmationStore constructs a Redis backed store.
func NewRedisConfirmationStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisConfirmationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisConfirmationStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *RedisConfirmationStore) key(id string) string {
	return s.prefix + id
}

// RecordOpen implements the confirmation store contract.
func (s *RedisConfirmationStore) RecordOpen(ctx context.Context, id string, at time.Time) error {
	key := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldOpens, 1)
	pipe.HSet(ctx, key, fieldLastOpenedAt, at.UTC().Format(time.RFC3339Nano))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record open %s: %w", key, err)
	}
	return nil
}

// Confirm implements the confirmation store contract.
func (s *RedisConfirmationStore) Confirm(ctx context.Context, id string, at time.Time) error {
	key := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldConfirmedAt, at.UTC().Format(time.RFC3339Nano))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis confirm %s: %w", key, err)
	}
	return nil
}

// Status implements the confirmation store contract.
func (s *RedisConfirmationStore) Status(ctx context.Context, id string) (models.TrackingStatus, error) {
	key := s.key(id)
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TrackingStatus{}, appErrors.Clone(appErrors.ErrNotFound, "no tracking events for "+id)
		}
		return models.TrackingStatus{}, fmt.Errorf("redis status %s: %w", key, err)
	}
	if len(values) == 0 {
		return models.TrackingStatus{}, appErrors.Clone(appErrors.ErrNotFound, "no tracking events for "+id)
	}
	return decodeStatus(id, values, s.logger), nil
}

// Close releases the Redis connection.
func (s *RedisConfirmationStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func decodeStatus(id string, values map[string]string, logger *zap.Logger) models.TrackingStatus {
	status := models.TrackingStatus{ID: id}
	if raw, ok := values[fieldOpens]; ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("invalid open counter", zap.String("id", id), zap.String("value", raw))
		}
		status.Opens = n
	}
	status.LastOpenedAt = parseStamp(id, fieldLastOpenedAt, values, logger)
	status.ConfirmedAt = parseStamp(id, fieldConfirmedAt, values, logger)
	return status
}

func parseStamp(id, field string, values map[string]string, logger *zap.Logger) *time.Time {
	raw, ok := values[field]
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		logger.Warn("invalid tracking timestamp", zap.String("id", id), zap.String("field", field), zap.String("value", raw))
		return nil
	}
	return &t
}
