package db

import (
	"context"
	"time"

	"Loopline.com/cmd/model"
)

func CreateBookmark(ctx context.Context, bookmark *model.Bookmark) error {
	return DB.WithContext(ctx).Create(bookmark).Error
}

// DeleteBookmark reports whether a row was actually removed; zero rows is
// the already-gone race, absorbed by the caller.
func DeleteBookmark(ctx context.Context, postId, userId int64) (bool, error) {
	res := DB.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postId, userId).
		Delete(&model.Bookmark{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func IsBookmarked(ctx context.Context, postId, userId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Bookmark{}).
		Where("post_id = ? AND user_id = ?", postId, userId).
		Count(&count).Error
	return count > 0, err
}

func GetBookmarkCount(ctx context.Context, postId int64) (int64, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Bookmark{}).
		Where("post_id = ?", postId).
		Count(&count).Error
	return count, err
}

// ListUserBookmarksPage returns one page of a user's bookmarks, newest
// first, cursor position exclusive.
func ListUserBookmarksPage(ctx context.Context, userId int64, before *time.Time, beforeId int64, limit int) ([]model.Bookmark, error) {
	query := DB.WithContext(ctx).Model(&model.Bookmark{}).
		Where("user_id = ?", userId)
	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND bookmark_id < ?)",
			*before, *before, beforeId,
		)
	}
	bookmarks := make([]model.Bookmark, 0, limit)
	err := query.Order("created_at DESC, bookmark_id DESC").
		Limit(limit).
		Find(&bookmarks).Error
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}
