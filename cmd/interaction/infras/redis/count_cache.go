// Best-effort cached copies of per-target interaction counters. Read
// paths consult the cache first and fall back to the relational store on
// a miss. Mutating engines refresh entries with absolute values after
// the database write; the counter verifier re-seeds them after a repair.
// The cache is never consulted on the mutation path, which always
// re-reads the relational store.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const countTTL = 10 * time.Minute

func likeCountKey(targetType string, targetId int64) string {
	return fmt.Sprintf("count:like:%s:%d", targetType, targetId)
}

func commentCountKey(targetType string, targetId int64) string {
	return fmt.Sprintf("count:comment:%s:%d", targetType, targetId)
}

// SetLikeCount stores an absolute value; relative INCR/DECR is never used
// here so a lost update cannot compound.
func SetLikeCount(ctx context.Context, targetType string, targetId, count int64) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, likeCountKey(targetType, targetId), count, countTTL).Err()
}

// GetLikeCount returns (count, found). A cache miss is not an error.
func GetLikeCount(ctx context.Context, targetType string, targetId int64) (int64, bool, error) {
	if rdb == nil {
		return 0, false, nil
	}
	val, err := rdb.Get(ctx, likeCountKey(targetType, targetId)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// GetLikeCounts resolves many targets in one MGET round trip. Only
// cached entries appear in the result; absent ids are misses for the
// caller to fill from the relational store.
func GetLikeCounts(ctx context.Context, targetType string, targetIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(targetIds))
	if rdb == nil || len(targetIds) == 0 {
		return counts, nil
	}
	keys := make([]string, 0, len(targetIds))
	for _, id := range targetIds {
		keys = append(keys, likeCountKey(targetType, id))
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, val := range vals {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counts[targetIds[i]] = count
	}
	return counts, nil
}

func SetCommentCount(ctx context.Context, targetType string, targetId, count int64) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, commentCountKey(targetType, targetId), count, countTTL).Err()
}

func GetCommentCount(ctx context.Context, targetType string, targetId int64) (int64, bool, error) {
	if rdb == nil {
		return 0, false, nil
	}
	val, err := rdb.Get(ctx, commentCountKey(targetType, targetId)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}
