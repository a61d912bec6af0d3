package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"Loopline.com/cmd/model"
	"Loopline.com/pkg/constants"
)

func commentTargetScope(query *gorm.DB, targetType string, targetId int64) *gorm.DB {
	if targetType == constants.TargetTypeActivity {
		return query.Where("activity_id = ?", targetId)
	}
	return query.Where("post_id = ?", targetId)
}

// CreateComment persists the row and, for activity comments, bumps the
// denormalized comments_count inside the same transaction.
func CreateComment(ctx context.Context, comment *model.Comment) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if comment.ActivityId == nil {
			return nil
		}
		return tx.Model(&model.Activity{}).
			Where("activity_id = ?", *comment.ActivityId).
			UpdateColumn("comments_count", gorm.Expr("comments_count + ?", 1)).Error
	})
}

// GetComment fetches a comment regardless of soft-delete state; callers
// decide what a deleted row means for them.
func GetComment(ctx context.Context, commentId int64) (*model.Comment, error) {
	comment := &model.Comment{}
	err := DB.WithContext(ctx).
		Where("comment_id = ?", commentId).
		First(comment).Error
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func HasReplies(ctx context.Context, commentId int64) (bool, error) {
	var count int64
	err := DB.WithContext(ctx).Model(&model.Comment{}).
		Where("parent_id = ?", commentId).
		Count(&count).Error
	return count > 0, err
}

// SoftDeleteComment hides the comment from listings while keeping the row
// (and therefore every historical count) intact.
func SoftDeleteComment(ctx context.Context, commentId int64) error {
	now := time.Now()
	return DB.WithContext(ctx).Model(&model.Comment{}).
		Where("comment_id = ?", commentId).
		Updates(map[string]interface{}{"deleted_at": &now, "updated_at": now}).Error
}

// HardDeleteComment removes the row outright and, for activity comments,
// decrements comments_count in the same transaction, clamped at zero.
// The reply check is re-run inside the transaction: a reply created
// after the caller's check would otherwise be orphaned. If replies
// exist the comment is soft-deleted instead and the returned flag is
// false.
func HardDeleteComment(ctx context.Context, comment *model.Comment) (bool, error) {
	hard := false
	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var replies int64
		if err := tx.Model(&model.Comment{}).
			Where("parent_id = ?", comment.CommentId).
			Count(&replies).Error; err != nil {
			return err
		}
		if replies > 0 {
			now := time.Now()
			return tx.Model(&model.Comment{}).
				Where("comment_id = ?", comment.CommentId).
				Updates(map[string]interface{}{"deleted_at": &now, "updated_at": now}).Error
		}
		res := tx.Where("comment_id = ?", comment.CommentId).Delete(&model.Comment{})
		if res.Error != nil {
			return res.Error
		}
		hard = true
		if res.RowsAffected == 0 || comment.ActivityId == nil {
			return nil
		}
		return tx.Model(&model.Activity{}).
			Where("activity_id = ? AND comments_count > 0", *comment.ActivityId).
			UpdateColumn("comments_count", gorm.Expr("comments_count - ?", 1)).Error
	})
	if err != nil {
		return false, err
	}
	return hard, nil
}

// ListTopLevelCommentsPage returns visible top-level comments newest
// first, cursor position exclusive.
func ListTopLevelCommentsPage(ctx context.Context, targetType string, targetId int64, before *time.Time, beforeId int64, limit int) ([]model.Comment, error) {
	query := DB.WithContext(ctx).Model(&model.Comment{}).
		Where("parent_id IS NULL AND deleted_at IS NULL")
	query = commentTargetScope(query, targetType, targetId)
	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND comment_id < ?)",
			*before, *before, beforeId,
		)
	}
	comments := make([]model.Comment, 0, limit)
	err := query.Order("created_at DESC, comment_id DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ListRepliesPage expands one thread in chronological reading order,
// cursor position exclusive.
func ListRepliesPage(ctx context.Context, parentId int64, after *time.Time, afterId int64, limit int) ([]model.Comment, error) {
	query := DB.WithContext(ctx).Model(&model.Comment{}).
		Where("parent_id = ? AND deleted_at IS NULL", parentId)
	if after != nil {
		query = query.Where(
			"created_at > ? OR (created_at = ? AND comment_id > ?)",
			*after, *after, afterId,
		)
	}
	comments := make([]model.Comment, 0, limit)
	err := query.Order("created_at ASC, comment_id ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// ListRepliesForParents fetches the visible replies of a whole page of
// parents at once, chronological order, for inline thread expansion.
func ListRepliesForParents(ctx context.Context, parentIds []int64) ([]model.Comment, error) {
	comments := make([]model.Comment, 0, len(parentIds))
	if len(parentIds) == 0 {
		return comments, nil
	}
	err := DB.WithContext(ctx).Model(&model.Comment{}).
		Where("parent_id IN ? AND deleted_at IS NULL", parentIds).
		Order("created_at ASC, comment_id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// BatchGetReplyCounts aggregates non-deleted reply counts for a page of
// parents in a single group-by query, never one query per comment.
func BatchGetReplyCounts(ctx context.Context, parentIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(parentIds))
	if len(parentIds) == 0 {
		return counts, nil
	}
	rows := make([]TargetCount, 0, len(parentIds))
	err := DB.WithContext(ctx).Model(&model.Comment{}).
		Select("parent_id AS target_id, COUNT(*) AS cnt").
		Where("parent_id IN ? AND deleted_at IS NULL", parentIds).
		Group("parent_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TargetId] = row.Count
	}
	return counts, nil
}

// CountVisibleTopLevelComments backs the listing's totalCount: only
// non-deleted top-level comments.
func CountVisibleTopLevelComments(ctx context.Context, targetType string, targetId int64) (int64, error) {
	var count int64
	query := DB.WithContext(ctx).Model(&model.Comment{}).
		Where("parent_id IS NULL AND deleted_at IS NULL")
	err := commentTargetScope(query, targetType, targetId).Count(&count).Error
	return count, err
}

// CountAllComments counts every row including soft-deleted ones. The
// displayed counter must not shrink when a comment with replies is
// hidden, so this deliberately diverges from list visibility.
func CountAllComments(ctx context.Context, targetType string, targetId int64) (int64, error) {
	var count int64
	query := DB.WithContext(ctx).Model(&model.Comment{})
	err := commentTargetScope(query, targetType, targetId).Count(&count).Error
	return count, err
}

// GroupCountCommentsByActivity is the verifier's source-of-truth
// aggregate: all comment rows per activity, soft-deleted included.
func GroupCountCommentsByActivity(ctx context.Context, activityIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(activityIds))
	if len(activityIds) == 0 {
		return counts, nil
	}
	rows := make([]TargetCount, 0, len(activityIds))
	err := DB.WithContext(ctx).Model(&model.Comment{}).
		Select("activity_id AS target_id, COUNT(*) AS cnt").
		Where("activity_id IN ?", activityIds).
		Group("activity_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TargetId] = row.Count
	}
	return counts, nil
}

// GroupCountLikesByActivity mirrors GroupCountCommentsByActivity for
// like rows.
func GroupCountLikesByActivity(ctx context.Context, activityIds []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(activityIds))
	if len(activityIds) == 0 {
		return counts, nil
	}
	rows := make([]TargetCount, 0, len(activityIds))
	err := DB.WithContext(ctx).Model(&model.Like{}).
		Select("activity_id AS target_id, COUNT(*) AS cnt").
		Where("activity_id IN ?", activityIds).
		Group("activity_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TargetId] = row.Count
	}
	return counts, nil
}
