package db

import (
	"context"

	"Loopline.com/cmd/model"
)

// GetPostForWrite resolves a post for write-time validation: only
// published, non-deleted posts accept new interactions.
func GetPostForWrite(ctx context.Context, postId int64) (*model.Post, error) {
	post := &model.Post{}
	err := DB.WithContext(ctx).
		Where("post_id = ? AND published = ? AND deleted_at IS NULL", postId, true).
		First(post).Error
	if err != nil {
		return nil, err
	}
	return post, nil
}

// PostExists is the read-path check: status reads work on any existing
// post regardless of publish state.
func PostExists(ctx context.Context, postId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Post{}).
		Where("post_id = ?", postId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func GetPostsByIds(ctx context.Context, postIds []int64) ([]model.Post, error) {
	posts := make([]model.Post, 0, len(postIds))
	if len(postIds) == 0 {
		return posts, nil
	}
	err := DB.WithContext(ctx).
		Where("post_id IN ?", postIds).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}
