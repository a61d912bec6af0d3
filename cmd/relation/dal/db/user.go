package db

import (
	"context"

	"Loopline.com/cmd/model"
)

// GetUser resolves a user regardless of active state; the service layer
// decides whether an inactive account may be followed.
func GetUser(ctx context.Context, userId int64) (*model.User, error) {
	user := &model.User{}
	err := DB.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userId).
		First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func GetUsersByIds(ctx context.Context, userIds []int64) ([]model.User, error) {
	users := make([]model.User, 0, len(userIds))
	if len(userIds) == 0 {
		return users, nil
	}
	err := DB.WithContext(ctx).
		Where("user_id IN ? AND deleted_at IS NULL", userIds).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
