package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"Loopline.com/cmd/interaction/infras/redis"
	"Loopline.com/config"
	"Loopline.com/pkg/constants"
)

// setupTestCache backs the count cache with an in-process redis and
// tears it down with the test. Tests that skip this run with the cache
// disabled, which every code path tolerates.
func setupTestCache(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.ConfigInfo.Redis.Addr = mr.Addr()
	config.ConfigInfo.Redis.Password = ""
	config.ConfigInfo.Redis.DB = 0
	redis.Init()
	t.Cleanup(redis.Close)
}

func TestGetLikeStatusPrefersCachedCount(t *testing.T) {
	setupTestDB(t)
	setupTestCache(t)
	ctx := context.Background()
	seedUser(t, 1, "author")
	seedActivity(t, 10, 1)
	corruptCounter(t, 10, "likes_count", 3)

	if err := redis.SetLikeCount(ctx, constants.TargetTypeActivity, 10, 42); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	svc := NewLikeService(ctx, nil)
	status, err := svc.GetLikeStatus(ctx, constants.TargetTypeActivity, 10, 0)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if status.Count != 42 {
		t.Fatalf("expected the cached count 42, got %d", status.Count)
	}
}

func TestGetLikeStatusSeedsCacheOnMiss(t *testing.T) {
	setupTestDB(t)
	setupTestCache(t)
	ctx := context.Background()
	seedUser(t, 1, "author")
	seedActivity(t, 10, 1)
	corruptCounter(t, 10, "likes_count", 3)

	svc := NewLikeService(ctx, nil)
	status, err := svc.GetLikeStatus(ctx, constants.TargetTypeActivity, 10, 0)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if status.Count != 3 {
		t.Fatalf("expected the stored count 3, got %d", status.Count)
	}

	count, found, err := redis.GetLikeCount(ctx, constants.TargetTypeActivity, 10)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if !found || count != 3 {
		t.Fatalf("expected the miss to seed the cache with 3, got %d found %t", count, found)
	}
}

func TestToggleLikeOverwritesCachedCount(t *testing.T) {
	setupTestDB(t)
	setupTestCache(t)
	ctx := context.Background()
	seedUser(t, 1, "author")
	seedUser(t, 2, "fan")
	seedActivity(t, 10, 1)

	if err := redis.SetLikeCount(ctx, constants.TargetTypeActivity, 10, 42); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	svc := NewLikeService(ctx, nil)
	status, err := svc.ToggleLike(ctx, constants.TargetTypeActivity, 10, 2)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if status.Count != 1 {
		t.Fatalf("expected the authoritative count 1 after mutation, got %d", status.Count)
	}

	count, found, err := redis.GetLikeCount(ctx, constants.TargetTypeActivity, 10)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if !found || count != 1 {
		t.Fatalf("expected the mutation to overwrite the cache with 1, got %d found %t", count, found)
	}
}

func TestGetBatchLikeStatusMixesCacheAndStore(t *testing.T) {
	setupTestDB(t)
	setupTestCache(t)
	ctx := context.Background()
	seedUser(t, 1, "author")
	seedActivity(t, 10, 1)
	seedActivity(t, 11, 1)
	corruptCounter(t, 11, "likes_count", 2)

	if err := redis.SetLikeCount(ctx, constants.TargetTypeActivity, 10, 7); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	svc := NewLikeService(ctx, nil)
	result, err := svc.GetBatchLikeStatus(ctx, constants.TargetTypeActivity, []int64{10, 11}, 0)
	if err != nil {
		t.Fatalf("GetBatchLikeStatus failed: %v", err)
	}
	if result[10].Count != 7 {
		t.Fatalf("expected the cached count 7 for activity 10, got %d", result[10].Count)
	}
	if result[11].Count != 2 {
		t.Fatalf("expected the stored count 2 for activity 11, got %d", result[11].Count)
	}

	count, found, err := redis.GetLikeCount(ctx, constants.TargetTypeActivity, 11)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if !found || count != 2 {
		t.Fatalf("expected the miss to seed the cache with 2, got %d found %t", count, found)
	}
}

func TestGetCommentCountPrefersCachedValue(t *testing.T) {
	setupTestDB(t)
	setupTestCache(t)
	ctx := context.Background()
	seedUser(t, 1, "author")
	seedActivity(t, 10, 1)

	if err := redis.SetCommentCount(ctx, constants.TargetTypeActivity, 10, 99); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	svc := newTestCommentService()
	count, err := svc.GetCommentCount(ctx, constants.TargetTypeActivity, 10)
	if err != nil {
		t.Fatalf("GetCommentCount failed: %v", err)
	}
	if count != 99 {
		t.Fatalf("expected the cached count 99, got %d", count)
	}

	// a mutation refreshes the cache with the authoritative value
	createComment(t, svc, constants.TargetTypeActivity, 10, 1, "hello", nil)
	count, err = svc.GetCommentCount(ctx, constants.TargetTypeActivity, 10)
	if err != nil {
		t.Fatalf("GetCommentCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the refreshed count 1 after mutation, got %d", count)
	}
	cached, found, err := redis.GetCommentCount(ctx, constants.TargetTypeActivity, 10)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if !found || cached != 1 {
		t.Fatalf("expected the mutation to overwrite the cache with 1, got %d found %t", cached, found)
	}
}
