// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/suiteops/internal/log"
)

// Key layout, with P the configured prefix:
//
//	P:job:<id>          HASH  job fields
//	P:<queue>:waiting   ZSET  id scored by run_at (ms)
//	P:<queue>:active    ZSET  id scored by lease_until (ms)
//	P:<queue>:completed ZSET  id scored by completion time (ms)
//	P:<queue>:failed    ZSET  id scored by failure time (ms)

var putScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

var claimScript = redis.NewScript(`
local id
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #due > 0 then
  id = due[1]
  redis.call('ZREM', KEYS[1], id)
else
  local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1], 'LIMIT', 0, 1)
  if #expired == 0 then return false end
  id = expired[1]
end
redis.call('ZADD', KEYS[2], ARGV[2], id)
local key = ARGV[3] .. id
redis.call('HINCRBY', key, 'attempts', 1)
redis.call('HSET', key, 'state', 'active', 'lease_until', ARGV[2], 'updated_at', ARGV[1])
return id
`)

var moveScript = redis.NewScript(`
local q = redis.call('HGET', KEYS[1], 'queue')
if not q then return 0 end
local base = ARGV[1] .. ':' .. q .. ':'
redis.call('ZREM', base .. 'waiting', ARGV[2])
redis.call('ZREM', base .. 'active', ARGV[2])
redis.call('ZADD', base .. ARGV[3], ARGV[4], ARGV[2])
redis.call('HSET', KEYS[1], 'state', ARGV[3], unpack(ARGV, 5))
return 1
`)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend stores jobs in Redis. Claims run as a Lua script, so any
// number of processes can consume the same queue.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// DialRedis connects to Redis, retrying the initial ping with exponential
// backoff until ctx ends or five attempts fail.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
	logger := log.WithComponent("queue")
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).
			Str("addr", cfg.Addr).
			Dur(log.FieldRetryIn, wait).
			Msg("redis not reachable, retrying")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(backoff.WithMaxRetries(eb, 5), ctx), notify); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis job store")
	return NewRedisBackend(client, cfg.Prefix), nil
}

// NewRedisBackend wraps an existing client. An empty prefix defaults to
// "suiteops:queue".
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "suiteops:queue"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) jobKeyPrefix() string { return b.prefix + ":job:" }

func (b *RedisBackend) jobKey(id string) string { return b.jobKeyPrefix() + id }

func (b *RedisBackend) setKey(queue string, state State) string {
	return b.prefix + ":" + queue + ":" + string(state)
}

func ms(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func (b *RedisBackend) Put(ctx context.Context, job Job) (Job, bool, error) {
	fields := []any{
		"id", job.ID,
		"queue", job.Queue,
		"type", job.Type,
		"payload", string(job.Payload),
		"attempts", 0,
		"max_attempts", job.MaxAttempts,
		"backoff_type", string(job.Backoff.Type),
		"backoff_delay_ms", job.Backoff.Delay.Milliseconds(),
		"state", string(StateWaiting),
		"run_at", ms(job.RunAt),
		"lease_until", "",
		"last_error", "",
		"result", "",
		"created_at", ms(job.CreatedAt),
		"updated_at", ms(job.UpdatedAt),
	}
	args := append([]any{ms(job.RunAt), job.ID}, fields...)
	created, err := putScript.Run(ctx, b.client,
		[]string{b.jobKey(job.ID), b.setKey(job.Queue, StateWaiting)}, args...).Int()
	if err != nil {
		return Job{}, false, err
	}
	stored, err := b.Get(ctx, job.ID)
	if err != nil {
		return Job{}, false, err
	}
	return stored, created == 1, nil
}

func (b *RedisBackend) Claim(ctx context.Context, queue string, now time.Time, lease time.Duration) (Job, bool, error) {
	id, err := claimScript.Run(ctx, b.client,
		[]string{b.setKey(queue, StateWaiting), b.setKey(queue, StateActive)},
		ms(now), ms(now.Add(lease)), b.jobKeyPrefix()).Text()
	if errors.Is(err, redis.Nil) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	j, err := b.Get(ctx, id)
	if err != nil {
		return Job{}, false, err
	}
	return j, true, nil
}

func (b *RedisBackend) move(ctx context.Context, id string, target State, score time.Time, fields ...any) error {
	args := append([]any{b.prefix, id, string(target), ms(score)}, fields...)
	moved, err := moveScript.Run(ctx, b.client, []string{b.jobKey(id)}, args...).Int()
	if err != nil {
		return err
	}
	if moved == 0 {
		return fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return nil
}

func (b *RedisBackend) Complete(ctx context.Context, id string, result json.RawMessage, now time.Time) error {
	return b.move(ctx, id, StateCompleted, now,
		"result", string(result), "lease_until", "", "updated_at", ms(now))
}

func (b *RedisBackend) Retry(ctx context.Context, id string, runAt time.Time, lastErr string, now time.Time) error {
	return b.move(ctx, id, StateWaiting, runAt,
		"run_at", ms(runAt), "last_error", lastErr, "lease_until", "", "updated_at", ms(now))
}

func (b *RedisBackend) Fail(ctx context.Context, id string, lastErr string, now time.Time) error {
	return b.move(ctx, id, StateFailed, now,
		"last_error", lastErr, "lease_until", "", "updated_at", ms(now))
}

func (b *RedisBackend) Get(ctx context.Context, id string) (Job, error) {
	fields, err := b.client.HGetAll(ctx, b.jobKey(id)).Result()
	if err != nil {
		return Job{}, err
	}
	if len(fields) == 0 {
		return Job{}, fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return decodeJobHash(fields)
}

func decodeJobHash(f map[string]string) (Job, error) {
	atoi := func(key string) (int64, error) {
		v := f[key]
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("decode job field %s: %w", key, err)
		}
		return n, nil
	}
	var nums [7]int64
	for i, key := range []string{"attempts", "max_attempts", "backoff_delay_ms", "run_at", "created_at", "updated_at", "lease_until"} {
		n, err := atoi(key)
		if err != nil {
			return Job{}, err
		}
		nums[i] = n
	}

	j := Job{
		ID:          f["id"],
		Queue:       f["queue"],
		Type:        f["type"],
		Payload:     json.RawMessage(f["payload"]),
		Attempts:    int(nums[0]),
		MaxAttempts: int(nums[1]),
		Backoff:     Backoff{Type: BackoffType(f["backoff_type"]), Delay: time.Duration(nums[2]) * time.Millisecond},
		State:       State(f["state"]),
		RunAt:       time.UnixMilli(nums[3]).UTC(),
		LastError:   f["last_error"],
		CreatedAt:   time.UnixMilli(nums[4]).UTC(),
		UpdatedAt:   time.UnixMilli(nums[5]).UTC(),
	}
	if f["lease_until"] != "" {
		l := time.UnixMilli(nums[6]).UTC()
		j.LeaseUntil = &l
	}
	if r := f["result"]; r != "" {
		j.Result = json.RawMessage(r)
	}
	return j, nil
}

func (b *RedisBackend) Failed(ctx context.Context, queue string, limit int) ([]Job, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := b.client.ZRevRange(ctx, b.setKey(queue, StateFailed), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := b.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, b.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]Job, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		j, err := decodeJobHash(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (b *RedisBackend) Stats(ctx context.Context, queue string) (Stats, error) {
	pipe := b.client.Pipeline()
	waiting := pipe.ZCard(ctx, b.setKey(queue, StateWaiting))
	active := pipe.ZCard(ctx, b.setKey(queue, StateActive))
	completed := pipe.ZCard(ctx, b.setKey(queue, StateCompleted))
	failed := pipe.ZCard(ctx, b.setKey(queue, StateFailed))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{
		Waiting:   int(waiting.Val()),
		Active:    int(active.Val()),
		Completed: int(completed.Val()),
		Failed:    int(failed.Val()),
	}, nil
}

func (b *RedisBackend) Close() error { return b.client.Close() }
