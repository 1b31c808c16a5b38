package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"skillforge/core"
	"skillforge/leaderboard"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" toml:"addr" env:"SKILLFORGE_STORAGE_REDIS_ADDR"`
	Password     string        `json:"password,omitempty" toml:"password" env:"SKILLFORGE_STORAGE_REDIS_PASSWORD"`
	DB           int           `json:"db" toml:"db" env:"SKILLFORGE_STORAGE_REDIS_DB"`
	PoolSize     int           `json:"pool_size" toml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" toml:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout" toml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" toml:"write_timeout"`
	// MaxRetries bounds optimistic-lock retries in Mutate.
	MaxRetries int `json:"max_retries" toml:"max_retries"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   16,
	}
}

// ErrContention is returned when Mutate keeps losing the optimistic lock.
var ErrContention = errors.New("redis: too much contention on user record")

// Store implements the engine storage interfaces using Redis as the backend.
// Data structure:
// - user:{user_id}:record -> JSON blob of UserRecord
// - users -> set of user ids that have a record
// - user:{user_id}:daily:{key}:{day} -> int64 daily budget, expires after 48h
// - leaderboard:{period}:{category} -> JSON blob of the latest Snapshot
type Store struct {
	client     *redis.Client
	maxRetries int
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := NewWithClient(client)
	if config.MaxRetries > 0 {
		s.maxRetries = config.MaxRetries
	}
	return s, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, maxRetries: DefaultConfig().MaxRetries}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

const usersKey = "users"

const dailyTTL = 48 * time.Hour

func userRecordKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:record", userID)
}

func userDailyKey(userID core.UserID, key, day string) string {
	return fmt.Sprintf("user:%s:daily:%s:%s", userID, key, day)
}

func snapshotKey(key leaderboard.Key) string {
	return fmt.Sprintf("leaderboard:%s:%s", key.Period, key.Category)
}

// Lua script for an atomic budget increment that sets the expiry on first use
var addDailyScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local next_val = redis.call('INCRBY', key, delta)
	if next_val == delta then
		redis.call('EXPIRE', key, ARGV[2])
	end
	return next_val
`)

// Mutate runs fn against the stored record under WATCH and commits with
// MULTI. A concurrent write to the same record restarts the attempt with a
// fresh copy, so fn may run more than once.
func (s *Store) Mutate(ctx context.Context, userID core.UserID, fn func(*core.UserRecord) error) (core.UserRecord, error) {
	key := userRecordKey(userID)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var out core.UserRecord
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			rec, err := loadRecord(ctx, tx, userID)
			if err != nil {
				return err
			}
			if err := fn(&rec); err != nil {
				return err
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, data, 0)
				p.SAdd(ctx, usersKey, string(userID))
				return nil
			})
			out = rec
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return core.UserRecord{}, err
		}
		return out, nil
	}
	return core.UserRecord{}, ErrContention
}

// AddDaily atomically increments a per-day budget counter.
func (s *Store) AddDaily(ctx context.Context, userID core.UserID, key, day string, delta int64) (int64, error) {
	result, err := addDailyScript.Run(ctx, s.client, []string{userDailyKey(userID, key, day)}, delta, int64(dailyTTL/time.Second)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add daily budget: %w", err)
	}
	total, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Redis script")
	}
	return total, nil
}

// Get returns the stored record or a fresh one for unknown users.
func (s *Store) Get(ctx context.Context, userID core.UserID) (core.UserRecord, error) {
	return loadRecord(ctx, s.client, userID)
}

// List loads every record named in the users set, ordered by user id.
func (s *Store) List(ctx context.Context) ([]core.UserRecord, error) {
	ids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userRecordKey(core.UserID(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	out := make([]core.UserRecord, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		rec, err := decodeRecord(core.UserID(ids[i]), []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReplaceSnapshot overwrites a board with a complete snapshot.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap leaderboard.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.Key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (s *Store) Snapshot(ctx context.Context, key leaderboard.Key) (leaderboard.Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return leaderboard.Snapshot{}, leaderboard.ErrNoSnapshot
	}
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap leaderboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

func loadRecord(ctx context.Context, c redis.Cmdable, userID core.UserID) (core.UserRecord, error) {
	data, err := c.Get(ctx, userRecordKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.NewUserRecord(userID), nil
	}
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("failed to load record: %w", err)
	}
	return decodeRecord(userID, data)
}

func decodeRecord(userID core.UserID, data []byte) (core.UserRecord, error) {
	rec := core.NewUserRecord(userID)
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.UserRecord{}, fmt.Errorf("failed to decode record for %s: %w", userID, err)
	}
	return rec, nil
}
