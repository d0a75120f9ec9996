package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"quizmaster-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const resultsIndexKey = "quiz:results"

// ResultsStore writes finished games to Redis:
//
//	SET  quiz:results:{pin}:{endUnixMs} {json}
//	ZADD quiz:results {endUnixMs} quiz:results:{pin}:{endUnixMs}
//
// Pins are reused across games, hence the end time in the key.
type ResultsStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultsStore keeps results for ttl; zero keeps them forever.
func NewResultsStore(client *redis.Client, ttl time.Duration) *ResultsStore {
	return &ResultsStore{client: client, ttl: ttl}
}

func (s *ResultsStore) SaveResults(ctx context.Context, results domain.GameResults) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	end := results.EndTime.UnixMilli()
	key := resultsKey(results.GamePin, end)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, resultsIndexKey, redis.Z{Score: float64(end), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save results %s: %w", results.GamePin, err)
	}
	return nil
}

// Recent returns up to n stored games, newest first. Expired entries are
// skipped. The server only writes results; this is the read side for tests.
func (s *ResultsStore) Recent(ctx context.Context, n int64) ([]domain.GameResults, error) {
	if n <= 0 {
		return nil, nil
	}
	keys, err := s.client.ZRevRange(ctx, resultsIndexKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	out := make([]domain.GameResults, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var r domain.GameResults
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func resultsKey(pin string, endUnixMs int64) string {
	return "quiz:results:" + pin + ":" + strconv.FormatInt(endUnixMs, 10)
}
