package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"Loopline.com/cmd/model"
)

// CreatePostLike inserts one like row. A duplicate (user, post) pair
// surfaces as gorm.ErrDuplicatedKey for the caller to absorb.
func CreatePostLike(ctx context.Context, like *model.Like) error {
	return DB.WithContext(ctx).Create(like).Error
}

// CreateActivityLike inserts the like row and bumps the denormalized
// likes_count in the same transaction, so the counter can never be
// skipped on partial failure.
func CreateActivityLike(ctx context.Context, like *model.Like) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(like).Error; err != nil {
			return err
		}
		return tx.Model(&model.Activity{}).
			Where("activity_id = ?", *like.ActivityId).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error
	})
}

// DeletePostLike removes the like row if present. Zero rows affected is
// reported, not an error: a concurrent unlike already had this effect.
func DeletePostLike(ctx context.Context, postId, userId int64) (bool, error) {
	res := DB.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postId, userId).
		Delete(&model.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteActivityLike removes the row and decrements likes_count in one
// transaction. The counter is clamped at zero.
func DeleteActivityLike(ctx context.Context, activityId, userId int64) (bool, error) {
	deleted := false
	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("activity_id = ? AND user_id = ?", activityId, userId).
			Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Model(&model.Activity{}).
			Where("activity_id = ? AND likes_count > 0", activityId).
			UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error
	})
	return deleted, err
}

func IsPostLiked(ctx context.Context, postId, userId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Where("post_id = ? AND user_id = ?", postId, userId).
		Count(&count).Error
	return count > 0, err
}

func IsActivityLiked(ctx context.Context, activityId, userId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Where("activity_id = ? AND user_id = ?", activityId, userId).
		Count(&count).Error
	return count > 0, err
}

// GetPostLikeCount is the authoritative post like count, computed from
// the source rows on every read.
func GetPostLikeCount(ctx context.Context, postId int64) (int64, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Where("post_id = ?", postId).
		Count(&count).Error
	return count, err
}

type TargetCount struct {
	TargetId int64 `gorm:"column:target_id"`
	Count    int64 `gorm:"column:cnt"`
}

// BatchGetPostLikeCounts aggregates like counts for many posts in one
// group-by query.
func BatchGetPostLikeCounts(ctx context.Context, postIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(postIds))
	if len(postIds) == 0 {
		return counts, nil
	}
	rows := make([]TargetCount, 0, len(postIds))
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Select("post_id AS target_id, COUNT(*) AS cnt").
		Where("post_id IN ?", postIds).
		Group("post_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TargetId] = row.Count
	}
	return counts, nil
}

// GetUserLikedPostIds marks which of the given posts the user has liked,
// in a single query.
func GetUserLikedPostIds(ctx context.Context, userId int64, postIds []int64) ([]int64, error) {
	liked := make([]int64, 0, len(postIds))
	if len(postIds) == 0 {
		return liked, nil
	}
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userId, postIds).
		Pluck("post_id", &liked).Error
	return liked, err
}

func GetUserLikedActivityIds(ctx context.Context, userId int64, activityIds []int64) ([]int64, error) {
	liked := make([]int64, 0, len(activityIds))
	if len(activityIds) == 0 {
		return liked, nil
	}
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND activity_id IN ?", userId, activityIds).
		Pluck("activity_id", &liked).Error
	return liked, err
}

// ListPostLikesPage returns one page of likes for a post, ordered
// (created_at DESC, like_id DESC) for a total order under timestamp
// collisions. The cursor position is exclusive.
func ListPostLikesPage(ctx context.Context, postId int64, before *time.Time, beforeId int64, limit int) ([]model.Like, error) {
	query := DB.WithContext(ctx).Model(&model.Like{}).
		Where("post_id = ?", postId)
	return listLikesPage(query, before, beforeId, limit)
}

func ListActivityLikesPage(ctx context.Context, activityId int64, before *time.Time, beforeId int64, limit int) ([]model.Like, error) {
	query := DB.WithContext(ctx).Model(&model.Like{}).
		Where("activity_id = ?", activityId)
	return listLikesPage(query, before, beforeId, limit)
}

func listLikesPage(query *gorm.DB, before *time.Time, beforeId int64, limit int) ([]model.Like, error) {
	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND like_id < ?)",
			*before, *before, beforeId,
		)
	}
	likes := make([]model.Like, 0, limit)
	err := query.Order("created_at DESC, like_id DESC").
		Limit(limit).
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}
