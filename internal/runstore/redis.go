package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps run records in Redis under a namespace.
// It is safe for concurrent use.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store for namespace on the given connection.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// NewRedisStoreFromURL parses a redis:// URL and creates the store.
func NewRedisStoreFromURL(url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewRedisStore(opts, namespace)
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// UpsertRun writes the record, indexes it by start time and publishes it to
// the run events channel.
func (s *RedisStore) UpsertRun(ctx context.Context, record *RunRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid run record: %w", err)
	}

	hash, err := RunToHash(record)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	key := RunKey(s.namespace, record.ID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, hash)
	pipe.ZAdd(ctx, RunsIndexKey(s.namespace), redis.Z{
		Score:  float64(record.StartedAt.UnixMilli()),
		Member: record.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write run record to Redis: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record for event: %w", err)
	}
	if err := s.rdb.Publish(ctx, RunEventsChannel(s.namespace), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	return nil
}

// GetRun returns ErrNotFound if the record doesn't exist.
func (s *RedisStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	hash, err := s.rdb.HGetAll(ctx, RunKey(s.namespace, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run record from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hash) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	record, err := HashToRun(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run record: %w", err)
	}
	return record, nil
}

// ListRuns walks the start-time index, so records come back oldest first.
// Index entries whose hash has gone are skipped.
func (s *RedisStore) ListRuns(ctx context.Context, filter *Filter) ([]*RunRecord, error) {
	lo, hi := "-inf", "+inf"
	if filter != nil && !filter.Since.IsZero() {
		lo = fmt.Sprintf("%d", filter.Since.UnixMilli())
	}
	if filter != nil && !filter.Until.IsZero() {
		hi = fmt.Sprintf("%d", filter.Until.UnixMilli())
	}

	ids, err := s.rdb.ZRangeByScore(ctx, RunsIndexKey(s.namespace), &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	runs := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetRun(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if filter.Matches(record) {
			runs = append(runs, record)
		}
	}

	sortRuns(runs)
	return runs, nil
}

// ScanRunIDs uses SCAN over the run keys so a large history never blocks
// the server.
func (s *RedisStore) ScanRunIDs(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := RunKeyPrefix(s.namespace)
	iter := s.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 0).Iterator()

	var ids []string
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan run keys: %w", err)
	}
	return ids, nil
}

// Subscription delivers run record updates.
// Caller must call Close() when done.
type Subscription struct {
	events <-chan *RunRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events is closed when the subscription is closed or its context ends.
func (s *Subscription) Events() <-chan *RunRecord {
	return s.events
}

// Errors carries undecodable messages; the subscription keeps going after them.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeRunEvents subscribes to record updates for this namespace.
// Delivery is at-most-once; a slow reader may miss events.
func (s *RedisStore) SubscribeRunEvents(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, RunEventsChannel(s.namespace))

	// Wait for the subscription to be confirmed so no event published
	// after this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	eventsChan := make(chan *RunRecord, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var record RunRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal run event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &record:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
