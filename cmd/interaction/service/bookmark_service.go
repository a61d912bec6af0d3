package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/model"
	"Loopline.com/pkg/cursor"
	"Loopline.com/pkg/errno"
	"Loopline.com/pkg/utils"
)

// BookmarkService mirrors the like engine, scoped to posts. Bookmarks are
// a private action: no notification is ever dispatched.
type BookmarkService struct {
	ctx context.Context
}

func NewBookmarkService(ctx context.Context) *BookmarkService {
	return &BookmarkService{ctx: ctx}
}

type BookmarkStatus struct {
	IsBookmarked bool  `json:"is_bookmarked"`
	Count        int64 `json:"count"`
}

type BookmarkedPost struct {
	Post         model.Post `json:"post"`
	BookmarkedAt time.Time  `json:"bookmarked_at"`
}

type BookmarkPage struct {
	Items      []BookmarkedPost `json:"items"`
	HasMore    bool             `json:"has_more"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func (s *BookmarkService) ToggleBookmark(ctx context.Context, postId, userId int64) (*BookmarkStatus, error) {
	bookmarked, err := db.IsBookmarked(ctx, postId, userId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read bookmark state")
	}

	if bookmarked {
		if _, err := db.DeleteBookmark(ctx, postId, userId); err != nil {
			return nil, errors.WithMessage(err, "failed to delete bookmark")
		}
		return s.statusAfter(ctx, postId, false)
	}

	if _, err := db.GetPostForWrite(ctx, postId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{"post_id": postId, "user_id": userId}).
				Warn("toggle bookmark rejected: target not found")
			return nil, errno.ErrTargetNotFound
		}
		return nil, errors.WithMessage(err, "failed to resolve post")
	}
	if _, err := s.createBookmark(ctx, postId, userId); err != nil {
		return nil, err
	}
	return s.statusAfter(ctx, postId, true)
}

// SetBookmark is idempotent in both directions, exactly like SetLike.
func (s *BookmarkService) SetBookmark(ctx context.Context, postId, userId int64, desired bool) (*BookmarkStatus, error) {
	if desired {
		bookmarked, err := db.IsBookmarked(ctx, postId, userId)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to read bookmark state")
		}
		if !bookmarked {
			if _, err := db.GetPostForWrite(ctx, postId); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, errno.ErrTargetNotFound
				}
				return nil, errors.WithMessage(err, "failed to resolve post")
			}
			if _, err := s.createBookmark(ctx, postId, userId); err != nil {
				return nil, err
			}
		}
		return s.statusAfter(ctx, postId, true)
	}

	if _, err := db.DeleteBookmark(ctx, postId, userId); err != nil {
		return nil, errors.WithMessage(err, "failed to delete bookmark")
	}
	return s.statusAfter(ctx, postId, false)
}

func (s *BookmarkService) GetBookmarkStatus(ctx context.Context, postId, userId int64) (*BookmarkStatus, error) {
	exists, err := db.PostExists(ctx, postId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to check post existence")
	}
	if !exists {
		return nil, errno.ErrTargetNotFound
	}
	count, err := db.GetBookmarkCount(ctx, postId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to count bookmarks")
	}
	status := &BookmarkStatus{Count: count}
	if userId != 0 {
		status.IsBookmarked, err = db.IsBookmarked(ctx, postId, userId)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to read bookmark state")
		}
	}
	return status, nil
}

// ListBookmarks returns the user's bookmarked posts newest-first,
// cursor-paginated on the bookmark position.
func (s *BookmarkService) ListBookmarks(ctx context.Context, userId int64, cursorToken string, limit int) (*BookmarkPage, error) {
	limit = clampLimit(limit)

	var before *time.Time
	var beforeId int64
	if cursorToken != "" {
		at, id, err := cursor.Decode(cursorToken)
		if err != nil {
			return nil, err
		}
		before, beforeId = &at, id
	}

	bookmarks, err := db.ListUserBookmarksPage(ctx, userId, before, beforeId, limit+1)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list bookmarks")
	}
	hasMore := len(bookmarks) > limit
	if hasMore {
		bookmarks = bookmarks[:limit]
	}

	postIds := make([]int64, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		postIds = append(postIds, bookmark.PostId)
	}
	posts, err := db.GetPostsByIds(ctx, postIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read bookmarked posts")
	}
	postsById := make(map[int64]model.Post, len(posts))
	for _, post := range posts {
		postsById[post.PostId] = post
	}

	page := &BookmarkPage{
		Items:   make([]BookmarkedPost, 0, len(bookmarks)),
		HasMore: hasMore,
	}
	for _, bookmark := range bookmarks {
		post, ok := postsById[bookmark.PostId]
		if !ok {
			// post hard-deleted after being bookmarked
			continue
		}
		page.Items = append(page.Items, BookmarkedPost{
			Post:         post,
			BookmarkedAt: bookmark.CreatedAt,
		})
	}
	if hasMore && len(bookmarks) > 0 {
		last := bookmarks[len(bookmarks)-1]
		page.NextCursor = cursor.Encode(last.CreatedAt, last.BookmarkId)
	}
	return page, nil
}

// createBookmark absorbs the duplicate-create race the same way the like
// engine does.
func (s *BookmarkService) createBookmark(ctx context.Context, postId, userId int64) (bool, error) {
	bookmark := &model.Bookmark{
		BookmarkId: utils.GenerateRowID(),
		UserId:     userId,
		PostId:     postId,
	}
	err := db.CreateBookmark(ctx, bookmark)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return false, errno.ErrTargetNotFound
	}
	if err != nil {
		return false, errors.WithMessage(err, "failed to create bookmark")
	}
	return true, nil
}

func (s *BookmarkService) statusAfter(ctx context.Context, postId int64, isBookmarked bool) (*BookmarkStatus, error) {
	count, err := db.GetBookmarkCount(ctx, postId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to count bookmarks")
	}
	return &BookmarkStatus{IsBookmarked: isBookmarked, Count: count}, nil
}
