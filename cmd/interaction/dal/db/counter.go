package db

import (
	"context"

	"gorm.io/gorm"

	"Loopline.com/cmd/model"
)

// CounterFix is one absolute counter correction. The verifier always sets
// the freshly computed value rather than applying a relative delta, so a
// repeated or concurrent repair cannot compound drift.
type CounterFix struct {
	ActivityId int64
	Field      string // "likes_count" or "comments_count"
	Value      int64
}

// ApplyCounterFixes writes all corrections inside a single transaction,
// one update per mismatched row.
func ApplyCounterFixes(ctx context.Context, fixes []CounterFix) error {
	if len(fixes) == 0 {
		return nil
	}
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fix := range fixes {
			err := tx.Model(&model.Activity{}).
				Where("activity_id = ?", fix.ActivityId).
				UpdateColumn(fix.Field, fix.Value).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func CreateNotification(ctx context.Context, notification *model.Notification) error {
	return DB.WithContext(ctx).Create(notification).Error
}
