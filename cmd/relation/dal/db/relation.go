package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"Loopline.com/cmd/model"
)

func CreateFollow(ctx context.Context, follow *model.Follow) error {
	return DB.WithContext(ctx).Create(follow).Error
}

func IsFollowing(ctx context.Context, followerId, followingId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerId, followingId).
		Count(&count).Error
	return count > 0, err
}

// DeleteFollow reports whether an edge was actually removed. Zero rows
// means a concurrent unfollow already won; callers treat that as done.
func DeleteFollow(ctx context.Context, followerId, followingId int64) (bool, error) {
	var deleted bool
	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerId, followingId).
			Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// ListFollowersPage returns one page of edges pointing at userId, newest
// first with ascending id as the tiebreak, cursor position exclusive.
func ListFollowersPage(ctx context.Context, userId int64, before *time.Time, beforeId int64, limit int) ([]model.Follow, error) {
	query := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ?", userId)
	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND follow_id > ?)",
			*before, *before, beforeId,
		)
	}
	follows := make([]model.Follow, 0, limit)
	err := query.Order("created_at DESC, follow_id ASC").
		Limit(limit).
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	return follows, nil
}

// ListFollowingPage mirrors ListFollowersPage for edges leaving userId.
func ListFollowingPage(ctx context.Context, userId int64, before *time.Time, beforeId int64, limit int) ([]model.Follow, error) {
	query := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userId)
	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND follow_id > ?)",
			*before, *before, beforeId,
		)
	}
	follows := make([]model.Follow, 0, limit)
	err := query.Order("created_at DESC, follow_id ASC").
		Limit(limit).
		Find(&follows).Error
	if err != nil {
		return nil, err
	}
	return follows, nil
}

// GetFollowedSet answers "which of these users does followerId follow"
// with one IN query, returned as a membership set.
func GetFollowedSet(ctx context.Context, followerId int64, followingIds []int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{}, len(followingIds))
	if len(followingIds) == 0 {
		return set, nil
	}
	var ids []int64
	err := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id IN ?", followerId, followingIds).
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// GetFollowerSet answers "which of these users follow userId" with one
// IN query.
func GetFollowerSet(ctx context.Context, userId int64, candidateIds []int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{}, len(candidateIds))
	if len(candidateIds) == 0 {
		return set, nil
	}
	var ids []int64
	err := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ? AND follower_id IN ?", userId, candidateIds).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func CountFollowers(ctx context.Context, userId int64) (int64, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ?", userId).
		Count(&count).Error
	return count, err
}

func CountFollowing(ctx context.Context, userId int64) (int64, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userId).
		Count(&count).Error
	return count, err
}
