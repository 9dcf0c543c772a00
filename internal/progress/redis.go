package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// redisJobTTL bounds how long finished job records linger.
	redisJobTTL = 24 * time.Hour

	// redisTxRetries bounds optimistic-lock retries under contention.
	redisTxRetries = 16
)

// RedisTracker implements Tracker on Redis so progress survives process
// restarts and is visible to every replica. Updates use WATCH-based
// optimistic transactions keyed per job; contention is per job only.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker creates a tracker from a Redis URL
// (redis://host:port/db).
func NewRedisTracker(redisURL string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisTracker{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity.
func (t *RedisTracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close releases the client.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func jobKey(jobID string) string {
	return "fable:job:" + jobID
}

// Start registers a job with its page total.
func (t *RedisTracker) Start(ctx context.Context, jobID string, totalPages int) error {
	snap := Snapshot{
		JobID:      jobID,
		TotalPages: totalPages,
		Message:    MsgLoadingOutline,
		Previews:   make(map[int]string),
		UpdatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return t.client.Set(ctx, jobKey(jobID), data, redisJobTTL).Err()
}

// SetMessage updates the status message.
func (t *RedisTracker) SetMessage(ctx context.Context, jobID, message string) error {
	return t.update(ctx, jobID, func(snap *Snapshot) {
		if snap.Done {
			return
		}
		snap.Message = message
	})
}

// ReportPageComplete marks one page done, once.
func (t *RedisTracker) ReportPageComplete(ctx context.Context, jobID string, page int, previewRef string) error {
	return t.update(ctx, jobID, func(snap *Snapshot) {
		if snap.Previews == nil {
			snap.Previews = make(map[int]string)
		}
		if _, dup := snap.Previews[page]; dup {
			return
		}
		snap.Previews[page] = previewRef
		snap.CompletedPages = len(snap.Previews)
		if !snap.Done {
			snap.Message = CreatingPagesMessage(snap.CompletedPages, snap.TotalPages)
		}
	})
}

// SetDone terminates the job record.
func (t *RedisTracker) SetDone(ctx context.Context, jobID string, failure error) error {
	return t.update(ctx, jobID, func(snap *Snapshot) {
		snap.Done = true
		if failure != nil {
			snap.Failed = true
			snap.Error = failure.Error()
			snap.Message = failure.Error()
		} else {
			snap.Message = MsgFinished
		}
	})
}

// Read returns the current snapshot.
func (t *RedisTracker) Read(ctx context.Context, jobID string) (*Snapshot, error) {
	data, err := t.client.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode job snapshot: %w", err)
	}
	return &snap, nil
}

// update applies mutate inside a WATCH transaction on the job key.
func (t *RedisTracker) update(ctx context.Context, jobID string, mutate func(*Snapshot)) error {
	key := jobKey(jobID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to decode job snapshot: %w", err)
		}

		mutate(&snap)
		snap.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(&snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redisJobTTL)
			return nil
		})
		return err
	}

	for i := 0; i < redisTxRetries; i++ {
		err := t.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("job update contended too long: %s", jobID)
}

var _ Tracker = (*RedisTracker)(nil)
