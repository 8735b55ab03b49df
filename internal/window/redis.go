package window

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	contentKeyPrefix = "vr:content:"
	historyKeyPrefix = "vr:subs:"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisStore keeps one sorted set per business and per customer, scored by
// unix milliseconds. Sets are trimmed by score and rank on every insert and
// expire after the retention horizon.
type RedisStore struct {
	client *redis.Client
	cfg    Config
}

func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{client: client, cfg: cfg.withDefaults()}
}

func (s *RedisStore) RecentContent(ctx context.Context, businessID string, since time.Time) ([]ContentEntry, error) {
	if strings.TrimSpace(businessID) == "" {
		return nil, ErrEmptyKey
	}
	members, err := s.client.ZRangeByScore(ctx, contentKeyPrefix+businessID, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read content window: %w", err)
	}
	out := make([]ContentEntry, 0, len(members))
	for _, m := range members {
		var e ContentEntry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			// skip entries written by an incompatible version
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) InsertContent(ctx context.Context, businessID string, e ContentEntry) error {
	if strings.TrimSpace(businessID) == "" {
		return ErrEmptyKey
	}
	blob, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode content entry: %w", err)
	}
	key := contentKeyPrefix + businessID
	return s.appendTrimmed(ctx, key, e.RecordedAt, string(blob))
}

func (s *RedisStore) Submissions(ctx context.Context, customerHash string, since time.Time) ([]time.Time, error) {
	if strings.TrimSpace(customerHash) == "" {
		return nil, ErrEmptyKey
	}
	scores, err := s.client.ZRangeByScoreWithScores(ctx, historyKeyPrefix+customerHash, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read submission history: %w", err)
	}
	out := make([]time.Time, 0, len(scores))
	for _, z := range scores {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		ns, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, time.Unix(0, ns).UTC())
	}
	return out, nil
}

func (s *RedisStore) RecordSubmission(ctx context.Context, customerHash string, at time.Time) error {
	if strings.TrimSpace(customerHash) == "" {
		return ErrEmptyKey
	}
	return s.appendTrimmed(ctx, historyKeyPrefix+customerHash, at, strconv.FormatInt(at.UnixNano(), 10))
}

func (s *RedisStore) appendTrimmed(ctx context.Context, key string, at time.Time, member string) error {
	cutoff := at.Add(-s.cfg.Retention).UnixMilli()
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: member})
		p.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		// keep the newest MaxEntries
		p.ZRemRangeByRank(ctx, key, 0, int64(-s.cfg.MaxEntries-1))
		p.Expire(ctx, key, s.cfg.Retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}
