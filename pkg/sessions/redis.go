package sessions

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/applyflow/applyflow/pkg/turns"
)

const redisKeyPrefix = "applyflow:session:"

// RedisStore keeps each transcript as a Redis list of JSON-encoded turns,
// one element per turn. Suited to multi-node deployments where request
// handlers share a Redis instance.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// RedisOptions is the subset of connection settings the store needs.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(opts RedisOptions) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

// NewRedisStoreFromClient wraps an existing client, mainly for tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Kind() string { return "redis" }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) ([]turns.Turn, error) {
	raw, err := s.client.LRange(ctx, redisKeyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "load session %s: %v", id, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	ts := make([]turns.Turn, 0, len(raw))
	for _, item := range raw {
		var t turns.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, errors.Wrapf(ErrStorageUnavailable, "decode session %s: %v", id, err)
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// Append implements Store. All turns are pushed in a single RPUSH so the
// write is all-or-nothing.
func (s *RedisStore) Append(ctx context.Context, id string, newTurns []turns.Turn) error {
	if len(newTurns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(newTurns))
	for _, t := range newTurns {
		data, err := json.Marshal(t)
		if err != nil {
			return errors.Wrapf(ErrStorageUnavailable, "encode session %s: %v", id, err)
		}
		values = append(values, data)
	}
	if err := s.client.RPush(ctx, redisKeyPrefix+id, values...).Err(); err != nil {
		return errors.Wrapf(ErrStorageUnavailable, "append session %s: %v", id, err)
	}
	log.Debug().
		Str("session_id", id).
		Int("appended", len(newTurns)).
		Msg("sessions: appended turns to redis")
	return nil
}

// Close releases the underlying client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
