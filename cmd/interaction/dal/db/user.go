package db

import (
	"context"

	"Loopline.com/cmd/model"
)

func GetUsersByIds(ctx context.Context, userIds []int64) ([]model.User, error) {
	users := make([]model.User, 0, len(userIds))
	if len(userIds) == 0 {
		return users, nil
	}
	err := DB.WithContext(ctx).
		Where("user_id IN ?", userIds).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
