package db

import (
	"context"

	"Loopline.com/cmd/model"
)

// GetActivity resolves a non-soft-deleted activity.
func GetActivity(ctx context.Context, activityId int64) (*model.Activity, error) {
	activity := &model.Activity{}
	err := DB.WithContext(ctx).
		Where("activity_id = ? AND deleted_at IS NULL", activityId).
		First(activity).Error
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func GetActivitiesByIds(ctx context.Context, activityIds []int64) ([]model.Activity, error) {
	activities := make([]model.Activity, 0, len(activityIds))
	if len(activityIds) == 0 {
		return activities, nil
	}
	err := DB.WithContext(ctx).
		Where("activity_id IN ? AND deleted_at IS NULL", activityIds).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ListRecentActivities returns up to limit non-deleted activities, most
// recent first, for the counter verifier sweep.
func ListRecentActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	activities := make([]model.Activity, 0, limit)
	err := DB.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
