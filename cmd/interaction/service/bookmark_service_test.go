package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/model"
	"Loopline.com/pkg/errno"
	"Loopline.com/pkg/utils"
)

func TestToggleBookmark(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "reader")
	seedPost(t, 10, 1, true)

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()

	status, err := svc.ToggleBookmark(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ToggleBookmark on failed: %v", err)
	}
	if !status.IsBookmarked || status.Count != 1 {
		t.Errorf("after bookmark: IsBookmarked=%t Count=%d, want true 1", status.IsBookmarked, status.Count)
	}

	status, err = svc.ToggleBookmark(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ToggleBookmark off failed: %v", err)
	}
	if status.IsBookmarked || status.Count != 0 {
		t.Errorf("after unbookmark: IsBookmarked=%t Count=%d, want false 0", status.IsBookmarked, status.Count)
	}
}

func TestSetBookmarkIdempotent(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "reader")
	seedPost(t, 10, 1, true)

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := svc.SetBookmark(ctx, 10, 2, true)
		if err != nil {
			t.Fatalf("SetBookmark(true) #%d failed: %v", i+1, err)
		}
		if !status.IsBookmarked || status.Count != 1 {
			t.Errorf("SetBookmark(true) #%d: Count=%d, want 1", i+1, status.Count)
		}
	}
	for i := 0; i < 2; i++ {
		status, err := svc.SetBookmark(ctx, 10, 2, false)
		if err != nil {
			t.Fatalf("SetBookmark(false) #%d failed: %v", i+1, err)
		}
		if status.IsBookmarked || status.Count != 0 {
			t.Errorf("SetBookmark(false) #%d: Count=%d, want 0", i+1, status.Count)
		}
	}
}

func TestBookmarkRejectsBadTargets(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedPost(t, 11, 1, false)

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()

	if _, err := svc.ToggleBookmark(ctx, 999, 1); !errors.Is(err, errno.ErrTargetNotFound) {
		t.Errorf("missing post: err = %v, want ErrTargetNotFound", err)
	}
	if _, err := svc.SetBookmark(ctx, 11, 1, true); !errors.Is(err, errno.ErrTargetNotFound) {
		t.Errorf("draft post: err = %v, want ErrTargetNotFound", err)
	}
}

func TestCreateBookmarkDuplicateAbsorbed(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "reader")
	seedPost(t, 10, 1, true)

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()

	created, err := svc.createBookmark(ctx, 10, 2)
	if err != nil || !created {
		t.Fatalf("first createBookmark: created=%t err=%v, want true nil", created, err)
	}
	created, err = svc.createBookmark(ctx, 10, 2)
	if err != nil {
		t.Fatalf("second createBookmark returned error: %v", err)
	}
	if created {
		t.Error("second createBookmark reported a new row")
	}
}

func TestListBookmarksPagination(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "reader")
	for i := int64(10); i <= 12; i++ {
		seedPost(t, i, 1, true)
		bookmark := &model.Bookmark{
			BookmarkId: utils.GenerateRowID(),
			UserId:     2,
			PostId:     i,
			CreatedAt:  at(int(13 - i)), // post 12 bookmarked most recently
		}
		if err := db.DB.Create(bookmark).Error; err != nil {
			t.Fatalf("failed to seed bookmark: %v", err)
		}
	}

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()

	page, err := svc.ListBookmarks(ctx, 2, "", 2)
	if err != nil {
		t.Fatalf("ListBookmarks failed: %v", err)
	}
	if len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("first page: %d items HasMore=%t, want 2 true", len(page.Items), page.HasMore)
	}
	if page.Items[0].Post.PostId != 12 || page.Items[1].Post.PostId != 11 {
		t.Errorf("first page order = [%d %d], want [12 11]",
			page.Items[0].Post.PostId, page.Items[1].Post.PostId)
	}

	page, err = svc.ListBookmarks(ctx, 2, page.NextCursor, 2)
	if err != nil {
		t.Fatalf("ListBookmarks second page failed: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Fatalf("second page: %d items HasMore=%t, want 1 false", len(page.Items), page.HasMore)
	}
	if page.Items[0].Post.PostId != 10 {
		t.Errorf("second page post = %d, want 10", page.Items[0].Post.PostId)
	}
}

// A post hard-deleted after being bookmarked is skipped rather than
// rendered as a hole in the page.
func TestListBookmarksSkipsRemovedPosts(t *testing.T) {
	setupTestDB(t)
	seedUser(t, 1, "author")
	seedUser(t, 2, "reader")
	seedPost(t, 10, 1, true)
	seedPost(t, 11, 1, true)

	svc := NewBookmarkService(context.Background())
	ctx := context.Background()
	for _, postId := range []int64{10, 11} {
		if _, err := svc.SetBookmark(ctx, postId, 2, true); err != nil {
			t.Fatalf("SetBookmark failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := db.DB.Where("post_id = ?", 11).Delete(&model.Post{}).Error; err != nil {
		t.Fatalf("failed to remove post: %v", err)
	}

	page, err := svc.ListBookmarks(ctx, 2, "", 10)
	if err != nil {
		t.Fatalf("ListBookmarks failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Post.PostId != 10 {
		t.Fatalf("items = %+v, want only post 10", page.Items)
	}
}
