package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"eldercare-mcp/internal/core"
)

const (
	patientsKey     = "eldercare:patients"
	patientPrefix   = "eldercare:patient:"
	eventsKey       = "eldercare:events"
	eventsKeyPrefix = "eldercare:events:"
)

// RedisStore keeps patients in a sorted set ordered by creation time and
// events in newest-first lists, one global and one per patient. Broken
// connections are replaced by the client's pool on the next command.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore returns a RedisStore using the given options.
func NewRedisStore(opts *redis.Options, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		logger: logger.With("component", "store.redis"),
	}
}

// AppendEvent pushes the encoded event onto the global and patient lists.
func (s *RedisStore) AppendEvent(ctx context.Context, ev core.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encode event %s: %v", ErrPersistence, ev.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, eventsKey, data)
	pipe.LPush(ctx, eventsKeyPrefix+ev.PatientID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: push event %s: %v", ErrPersistence, ev.ID, err)
	}
	return nil
}

// SamplePatientID returns the oldest patient's id.
func (s *RedisStore) SamplePatientID(ctx context.Context) (string, error) {
	ids, err := s.client.ZRange(ctx, patientsKey, 0, 0).Result()
	if err != nil {
		return "", fmt.Errorf("%w: range patients: %v", ErrPersistence, err)
	}
	if len(ids) == 0 {
		return "", ErrNoPatients
	}
	return ids[0], nil
}

// AddPatient records the patient; re-adding keeps the original position.
func (s *RedisStore) AddPatient(ctx context.Context, p Patient) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	pipe := s.client.TxPipeline()
	pipe.ZAddNX(ctx, patientsKey, redis.Z{Score: float64(p.CreatedAt.UnixNano()), Member: p.ID})
	pipe.HSet(ctx, patientPrefix+p.ID, "name", p.Name, "created_at", p.CreatedAt.Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: add patient %s: %v", ErrPersistence, p.ID, err)
	}
	return nil
}

// ListEvents reads the newest events from the relevant list.
func (s *RedisStore) ListEvents(ctx context.Context, patientID string, limit int) ([]core.Event, error) {
	key := eventsKey
	if patientID != "" {
		key = eventsKeyPrefix + patientID
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: range %s: %v", ErrPersistence, key, err)
	}
	out := make([]core.Event, 0, len(raw))
	for _, item := range raw {
		var ev core.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			s.logger.Warn("skipping undecodable event", "key", key, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
