package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/artswipe/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrGenerationInProgress = errors.New("image generation already in progress")

const (
	statsCacheKey        = "artswipe:stats"
	statsCacheVersionKey = "artswipe:stats_version"
	generationLockKey    = "artswipe:generation_lock"
)

// StatsCache holds the last computed swipe stats.
// GetStats returns the cache version on a miss; SetStats only writes when the version is
// unchanged, so stats computed before an invalidation are dropped.
type StatsCache interface {
	GetStats(ctx context.Context) (stats *models.Stats, version string, ok bool)
	SetStats(ctx context.Context, stats *models.Stats, version string)
	InvalidateStats(ctx context.Context)
}

// GenerationLock serializes batch generation. TryLock returns ErrGenerationInProgress
// when another batch holds the lock.
type GenerationLock interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}

type noopStatsCache struct{}

func (noopStatsCache) GetStats(context.Context) (*models.Stats, string, bool) { return nil, "", false }
func (noopStatsCache) SetStats(context.Context, *models.Stats, string)        {}
func (noopStatsCache) InvalidateStats(context.Context)                        {}

// LocalGenerationLock is an in-process lock for single-instance deployments
type LocalGenerationLock struct {
	mu sync.Mutex
}

func NewLocalGenerationLock() *LocalGenerationLock {
	return &LocalGenerationLock{}
}

func (l *LocalGenerationLock) TryLock(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrGenerationInProgress
	}
	return l.mu.Unlock, nil
}

// RedisCacheService keeps the stats cache and the generation lock in Redis
// so several API instances share them.
type RedisCacheService struct {
	client   *redis.Client
	statsTTL time.Duration
	lockTTL  time.Duration
}

func NewRedisCacheService(client *redis.Client, statsTTL, lockTTL time.Duration) *RedisCacheService {
	return &RedisCacheService{
		client:   client,
		statsTTL: statsTTL,
		lockTTL:  lockTTL,
	}
}

func (s *RedisCacheService) GetStats(ctx context.Context) (*models.Stats, string, bool) {
	vals, err := s.client.MGet(ctx, statsCacheKey, statsCacheVersionKey).Result()
	if err != nil {
		log.Printf("WARN: stats cache read failed: %v", err)
		return nil, "", false
	}

	version, _ := vals[1].(string)
	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false
	}

	var stats models.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		log.Printf("WARN: stats cache entry is corrupt: %v", err)
		return nil, version, false
	}
	return &stats, version, true
}

// KEYS[1] stats, KEYS[2] version; ARGV[1] payload, ARGV[2] expected version, ARGV[3] ttl ms
var setStatsScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or ""
if current ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

func (s *RedisCacheService) SetStats(ctx context.Context, stats *models.Stats, version string) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	keys := []string{statsCacheKey, statsCacheVersionKey}
	if err := setStatsScript.Run(ctx, s.client, keys, raw, version, s.statsTTL.Milliseconds()).Err(); err != nil {
		log.Printf("WARN: stats cache write failed: %v", err)
	}
}

// InvalidateStats bumps the version before dropping the entry so in-flight writers lose
func (s *RedisCacheService) InvalidateStats(ctx context.Context) {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsCacheVersionKey)
		pipe.Del(ctx, statsCacheKey)
		return nil
	})
	if err != nil {
		log.Printf("WARN: stats cache invalidation failed: %v", err)
	}
}

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisCacheService) TryLock(ctx context.Context) (func(), error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, generationLockKey, token, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGenerationInProgress
	}

	return func() {
		// the request context may already be cancelled
		if err := releaseLockScript.Run(context.Background(), s.client, []string{generationLockKey}, token).Err(); err != nil {
			log.Printf("WARN: failed to release generation lock: %v", err)
		}
	}, nil
}
