package service

import (
	"context"
	"errors"
	"testing"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/model"
	"Loopline.com/pkg/constants"
	"Loopline.com/pkg/errno"
	"Loopline.com/pkg/utils"
)

func TestToggleLikePost(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	status, err := svc.ToggleLike(ctx, constants.TargetTypePost, 10, 2)
	if err != nil {
		t.Fatalf("ToggleLike on failed: %v", err)
	}
	if !status.IsLiked || status.Count != 1 {
		t.Errorf("after like: IsLiked=%t Count=%d, want true 1", status.IsLiked, status.Count)
	}

	status, err = svc.ToggleLike(ctx, constants.TargetTypePost, 10, 2)
	if err != nil {
		t.Fatalf("ToggleLike off failed: %v", err)
	}
	if status.IsLiked || status.Count != 0 {
		t.Errorf("after unlike: IsLiked=%t Count=%d, want false 0", status.IsLiked, status.Count)
	}
}

func TestToggleLikeActivityUpdatesCounter(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedActivity(t, 20, 1)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	if _, err := svc.ToggleLike(ctx, constants.TargetTypeActivity, 20, 2); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if got := activityCounter(t, 20, "likes_count"); got != 1 {
		t.Errorf("likes_count = %d, want 1", got)
	}

	if _, err := svc.ToggleLike(ctx, constants.TargetTypeActivity, 20, 2); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if got := activityCounter(t, 20, "likes_count"); got != 0 {
		t.Errorf("likes_count after unlike = %d, want 0", got)
	}
}

func TestSetLikeIdempotent(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := svc.SetLike(ctx, constants.TargetTypePost, 10, 2, true)
		if err != nil {
			t.Fatalf("SetLike(true) #%d failed: %v", i+1, err)
		}
		if !status.IsLiked || status.Count != 1 {
			t.Errorf("SetLike(true) #%d: IsLiked=%t Count=%d, want true 1", i+1, status.IsLiked, status.Count)
		}
	}
	for i := 0; i < 2; i++ {
		status, err := svc.SetLike(ctx, constants.TargetTypePost, 10, 2, false)
		if err != nil {
			t.Fatalf("SetLike(false) #%d failed: %v", i+1, err)
		}
		if status.IsLiked || status.Count != 0 {
			t.Errorf("SetLike(false) #%d: IsLiked=%t Count=%d, want false 0", i+1, status.IsLiked, status.Count)
		}
	}
}

func TestLikeRejectsBadTargets(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedPost(t, 11, 1, false) // draft

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	if _, err := svc.ToggleLike(ctx, constants.TargetTypePost, 999, 1); !errors.Is(err, errno.ErrTargetNotFound) {
		t.Errorf("missing post: err = %v, want ErrTargetNotFound", err)
	}
	if _, err := svc.ToggleLike(ctx, constants.TargetTypePost, 11, 1); !errors.Is(err, errno.ErrTargetNotFound) {
		t.Errorf("draft post: err = %v, want ErrTargetNotFound", err)
	}
	if _, err := svc.ToggleLike(ctx, "page", 11, 1); err == nil {
		t.Error("unknown target type: expected error, got nil")
	}
}

// Two requests race to create the same like: the loser hits the unique
// index and must see success with an unchanged count, not an error.
func TestCreateLikeDuplicateAbsorbed(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	created, err := svc.createLike(ctx, constants.TargetTypePost, 10, 2)
	if err != nil || !created {
		t.Fatalf("first createLike: created=%t err=%v, want true nil", created, err)
	}
	created, err = svc.createLike(ctx, constants.TargetTypePost, 10, 2)
	if err != nil {
		t.Fatalf("second createLike returned error: %v", err)
	}
	if created {
		t.Error("second createLike reported a new row")
	}

	status, err := svc.GetLikeStatus(ctx, constants.TargetTypePost, 10, 2)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if status.Count != 1 {
		t.Errorf("count after duplicate create = %d, want 1", status.Count)
	}
}

func TestGetLikeStatusAnonymous(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()
	if _, err := svc.EnsureLiked(ctx, constants.TargetTypePost, 10, 2); err != nil {
		t.Fatalf("EnsureLiked failed: %v", err)
	}

	status, err := svc.GetLikeStatus(ctx, constants.TargetTypePost, 10, 0)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if status.IsLiked {
		t.Error("anonymous caller reported IsLiked true")
	}
	if status.Count != 1 {
		t.Errorf("count = %d, want 1", status.Count)
	}
}

func TestGetLikeStatusWorksOnDraftPost(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedPost(t, 11, 1, false)

	svc := NewLikeService(context.Background(), nil)
	status, err := svc.GetLikeStatus(context.Background(), constants.TargetTypePost, 11, 1)
	if err != nil {
		t.Fatalf("GetLikeStatus on draft failed: %v", err)
	}
	if status.Count != 0 {
		t.Errorf("count = %d, want 0", status.Count)
	}
}

func TestGetBatchLikeStatus(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedActivity(t, 20, 1)
	seedActivity(t, 21, 1)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()
	if _, err := svc.EnsureLiked(ctx, constants.TargetTypeActivity, 20, 2); err != nil {
		t.Fatalf("EnsureLiked failed: %v", err)
	}

	result, err := svc.GetBatchLikeStatus(ctx, constants.TargetTypeActivity, []int64{20, 21}, 2)
	if err != nil {
		t.Fatalf("GetBatchLikeStatus failed: %v", err)
	}
	if !result[20].IsLiked || result[20].Count != 1 {
		t.Errorf("activity 20: IsLiked=%t Count=%d, want true 1", result[20].IsLiked, result[20].Count)
	}
	if result[21].IsLiked || result[21].Count != 0 {
		t.Errorf("activity 21: IsLiked=%t Count=%d, want false 0", result[21].IsLiked, result[21].Count)
	}
}

func TestGetBatchLikeStatusLimit(t *testing.T) {
	setupTestDB(t)
	svc := NewLikeService(context.Background(), nil)

	ids := make([]int64, constants.MaxLimit+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if _, err := svc.GetBatchLikeStatus(context.Background(), constants.TargetTypePost, ids, 1); !errors.Is(err, errno.ErrLimitExceeded) {
		t.Errorf("err = %v, want ErrLimitExceeded", err)
	}
}

func TestGetLikeUsersPagination(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedPost(t, 10, 1, true)
	for i := int64(2); i <= 4; i++ {
		seedUser(t, i, "liker")
		postId := int64(10)
		like := &model.Like{
			LikeId:    utils.GenerateRowID(),
			UserId:    i,
			PostId:    &postId,
			CreatedAt: at(int(5 - i)), // user 4 liked most recently
		}
		if err := db.DB.Create(like).Error; err != nil {
			t.Fatalf("failed to seed like: %v", err)
		}
	}

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	page, err := svc.GetLikeUsers(ctx, constants.TargetTypePost, 10, "", 2)
	if err != nil {
		t.Fatalf("GetLikeUsers failed: %v", err)
	}
	if len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("first page: %d items HasMore=%t, want 2 true", len(page.Items), page.HasMore)
	}
	if page.Items[0].UserId != 4 || page.Items[1].UserId != 3 {
		t.Errorf("first page order = [%d %d], want [4 3]", page.Items[0].UserId, page.Items[1].UserId)
	}
	if !page.Items[0].LikedAt.After(page.Items[1].LikedAt) {
		t.Error("first page not ordered newest first")
	}

	page, err = svc.GetLikeUsers(ctx, constants.TargetTypePost, 10, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("GetLikeUsers second page failed: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Fatalf("second page: %d items HasMore=%t, want 1 false", len(page.Items), page.HasMore)
	}
	if page.Items[0].UserId != 2 {
		t.Errorf("second page user = %d, want 2", page.Items[0].UserId)
	}
}

func TestGetLikeUsersInvalidCursor(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	if _, err := svc.GetLikeUsers(context.Background(), constants.TargetTypePost, 10, "not a cursor", 10); !errors.Is(err, errno.ErrInvalidCursor) {
		t.Errorf("err = %v, want ErrInvalidCursor", err)
	}
}

// Unliking right after a concurrent unlike already removed the row must
// still end in the unliked state without an error.
func TestRemoveLikeAbsentRow(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "liker")
	seedPost(t, 10, 1, true)

	svc := NewLikeService(context.Background(), nil)
	ctx := context.Background()

	deleted, err := svc.removeLike(ctx, constants.TargetTypePost, 10, 2)
	if err != nil {
		t.Fatalf("removeLike failed: %v", err)
	}
	if deleted {
		t.Error("removeLike reported a deletion for an absent row")
	}

	status, err := svc.SetLike(ctx, constants.TargetTypePost, 10, 2, false)
	if err != nil {
		t.Fatalf("SetLike(false) failed: %v", err)
	}
	if status.IsLiked || status.Count != 0 {
		t.Errorf("IsLiked=%t Count=%d, want false 0", status.IsLiked, status.Count)
	}
}
