package careboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Latest for a patient without a status.
var ErrNotFound = errors.New("careboard: no status")

const (
	keyPrefix    = "careboard:patient:"
	notifyPrefix = "careboard:update:"
)

// RedisBoard stores each status in a hash holding the encoded value and a
// version counter, and announces every write on a pub/sub channel. The
// client's pool replaces broken connections.
type RedisBoard struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBoard returns a RedisBoard with the given options.
func NewRedisBoard(opts *redis.Options, logger *slog.Logger) *RedisBoard {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBoard{
		client: redis.NewClient(opts),
		logger: logger.With("component", "careboard"),
	}
}

// Record stores st as the patient's latest status and returns its version.
func (b *RedisBoard) Record(ctx context.Context, st Status) (int64, error) {
	if st.PatientID == "" {
		return 0, errors.New("careboard: status without patient id")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("encode status: %w", err)
	}

	key := keyPrefix + st.PatientID
	var ver int64
	err = b.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		ver = cur + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "value", data, "version", ver)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, fmt.Errorf("record status for %s: %w", st.PatientID, err)
	}

	upd, _ := json.Marshal(Update{Version: ver, Status: st})
	if err := b.client.Publish(ctx, notifyPrefix+st.PatientID, upd).Err(); err != nil {
		b.logger.Warn("status update not announced", "patient_id", st.PatientID, "error", err)
	}
	return ver, nil
}

// Latest returns the patient's current status and version.
func (b *RedisBoard) Latest(ctx context.Context, patientID string) (Status, int64, error) {
	res, err := b.client.HGetAll(ctx, keyPrefix+patientID).Result()
	if err != nil {
		return Status{}, 0, fmt.Errorf("read status for %s: %w", patientID, err)
	}
	if len(res) == 0 {
		return Status{}, 0, ErrNotFound
	}
	var st Status
	if err := json.Unmarshal([]byte(res["value"]), &st); err != nil {
		return Status{}, 0, fmt.Errorf("decode status for %s: %w", patientID, err)
	}
	ver, err := strconv.ParseInt(res["version"], 10, 64)
	if err != nil {
		return Status{}, 0, fmt.Errorf("decode version for %s: %w", patientID, err)
	}
	return st, ver, nil
}

// Watch streams updates for patients whose id matches pattern.
func (b *RedisBoard) Watch(ctx context.Context, pattern string) (<-chan Update, error) {
	pubsub := b.client.PSubscribe(ctx, notifyPrefix+pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("watch %s: %w", pattern, err)
	}

	ch := make(chan Update)
	go func() {
		defer close(ch)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || err == redis.ErrClosed {
					return
				}
				b.logger.Warn("watch receive failed", "error", err)
				time.Sleep(time.Second)
				continue
			}
			var upd Update
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				continue
			}
			select {
			case ch <- upd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close closes the Redis connection.
func (b *RedisBoard) Close() error { return b.client.Close() }

var _ Board = (*RedisBoard)(nil)
