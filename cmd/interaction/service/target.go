package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/pkg/constants"
	"Loopline.com/pkg/errno"
)

// resolveTargetOwner confirms the target accepts new interactions and
// returns the owning user id. Write-time rules: posts must be published
// and not deleted, activities must not be soft-deleted.
func resolveTargetOwner(ctx context.Context, targetType string, targetId int64) (int64, error) {
	switch targetType {
	case constants.TargetTypePost:
		post, err := db.GetPostForWrite(ctx, targetId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errno.ErrTargetNotFound
		}
		if err != nil {
			return 0, errors.WithMessage(err, "failed to resolve post")
		}
		return post.UserId, nil
	case constants.TargetTypeActivity:
		activity, err := db.GetActivity(ctx, targetId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errno.ErrTargetNotFound
		}
		if err != nil {
			return 0, errors.WithMessage(err, "failed to resolve activity")
		}
		return activity.UserId, nil
	default:
		return 0, errno.RequestErr.WithMessage("unknown target type: " + targetType)
	}
}

// checkTargetReadable applies the looser read-path rules: status reads
// work on any existing post, published or not.
func checkTargetReadable(ctx context.Context, targetType string, targetId int64) error {
	switch targetType {
	case constants.TargetTypePost:
		exists, err := db.PostExists(ctx, targetId)
		if err != nil {
			return errors.WithMessage(err, "failed to check post existence")
		}
		if !exists {
			return errno.ErrTargetNotFound
		}
		return nil
	case constants.TargetTypeActivity:
		_, err := db.GetActivity(ctx, targetId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errno.ErrTargetNotFound
		}
		if err != nil {
			return errors.WithMessage(err, "failed to check activity existence")
		}
		return nil
	default:
		return errno.RequestErr.WithMessage("unknown target type: " + targetType)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		return constants.MaxLimit
	}
	return limit
}
