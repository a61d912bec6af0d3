package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/interaction/infras/redis"
	"Loopline.com/cmd/model"
	"Loopline.com/pkg/constants"
	"Loopline.com/pkg/cursor"
	"Loopline.com/pkg/errno"
	"Loopline.com/pkg/mq"
	"Loopline.com/pkg/utils"
)

type LikeService struct {
	ctx      context.Context
	producer mq.NotificationProducer
}

func NewLikeService(ctx context.Context, producer mq.NotificationProducer) *LikeService {
	return &LikeService{ctx: ctx, producer: producer}
}

type LikeStatus struct {
	IsLiked bool  `json:"is_liked"`
	Count   int64 `json:"count"`
}

type LikeUserItem struct {
	UserId    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	AvatarUrl string    `json:"avatar_url"`
	LikedAt   time.Time `json:"liked_at"`
}

type LikeUserPage struct {
	Items      []LikeUserItem `json:"items"`
	HasMore    bool           `json:"has_more"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ToggleLike flips the caller's like state. Read and write are separate
// round-trips on purpose: a constraint violation in between is absorbed
// by re-reading authoritative state, never by serializing all likes on a
// target inside one transaction.
func (s *LikeService) ToggleLike(ctx context.Context, targetType string, targetId, userId int64) (*LikeStatus, error) {
	liked, err := s.isLiked(ctx, targetType, targetId, userId)
	if err != nil {
		return nil, err
	}

	if liked {
		if _, err := s.removeLike(ctx, targetType, targetId, userId); err != nil {
			return nil, err
		}
		return s.statusAfter(ctx, targetType, targetId, false)
	}

	ownerId, err := resolveTargetOwner(ctx, targetType, targetId)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"target_type": targetType, "target_id": targetId, "user_id": userId,
		}).Warnf("toggle like rejected: %v", err)
		return nil, err
	}
	created, err := s.createLike(ctx, targetType, targetId, userId)
	if err != nil {
		return nil, err
	}
	if created {
		go s.sendLikeNotification(targetType, targetId, ownerId, userId)
	}
	return s.statusAfter(ctx, targetType, targetId, true)
}

// SetLike drives the like state to desired, idempotently: a duplicate
// create and a delete of an absent row both collapse to success.
func (s *LikeService) SetLike(ctx context.Context, targetType string, targetId, userId int64, desired bool) (*LikeStatus, error) {
	if desired {
		liked, err := s.isLiked(ctx, targetType, targetId, userId)
		if err != nil {
			return nil, err
		}
		if !liked {
			ownerId, err := resolveTargetOwner(ctx, targetType, targetId)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"target_type": targetType, "target_id": targetId, "user_id": userId,
				}).Warnf("set like rejected: %v", err)
				return nil, err
			}
			created, err := s.createLike(ctx, targetType, targetId, userId)
			if err != nil {
				return nil, err
			}
			if created {
				go s.sendLikeNotification(targetType, targetId, ownerId, userId)
			}
		}
		return s.statusAfter(ctx, targetType, targetId, true)
	}

	if _, err := s.removeLike(ctx, targetType, targetId, userId); err != nil {
		return nil, err
	}
	return s.statusAfter(ctx, targetType, targetId, false)
}

func (s *LikeService) EnsureLiked(ctx context.Context, targetType string, targetId, userId int64) (*LikeStatus, error) {
	return s.SetLike(ctx, targetType, targetId, userId, true)
}

func (s *LikeService) EnsureUnliked(ctx context.Context, targetType string, targetId, userId int64) (*LikeStatus, error) {
	return s.SetLike(ctx, targetType, targetId, userId, false)
}

// GetLikeStatus is read-only. Count is always returned; IsLiked only when
// a user id is supplied (anonymous callers pass 0).
func (s *LikeService) GetLikeStatus(ctx context.Context, targetType string, targetId, userId int64) (*LikeStatus, error) {
	if err := checkTargetReadable(ctx, targetType, targetId); err != nil {
		return nil, err
	}
	count, err := s.likeCountCached(ctx, targetType, targetId)
	if err != nil {
		return nil, err
	}
	status := &LikeStatus{Count: count}
	if userId != 0 {
		status.IsLiked, err = s.isLiked(ctx, targetType, targetId, userId)
		if err != nil {
			return nil, err
		}
	}
	return status, nil
}

// GetBatchLikeStatus resolves many targets in two queries: one aggregate
// for the counts and one membership query for the caller's likes.
func (s *LikeService) GetBatchLikeStatus(ctx context.Context, targetType string, targetIds []int64, userId int64) (map[int64]*LikeStatus, error) {
	if len(targetIds) > constants.MaxLimit {
		return nil, errno.ErrLimitExceeded
	}
	result := make(map[int64]*LikeStatus, len(targetIds))
	if len(targetIds) == 0 {
		return result, nil
	}

	if targetType != constants.TargetTypeActivity && targetType != constants.TargetTypePost {
		return nil, errno.RequestErr.WithMessage("unknown target type: " + targetType)
	}

	// one MGET up front; only the misses hit the relational store
	cached, err := redis.GetLikeCounts(ctx, targetType, targetIds)
	if err != nil {
		logrus.Warnf("failed to batch read like count cache: %v", err)
		cached = map[int64]int64{}
	}
	missedIds := make([]int64, 0, len(targetIds))
	for _, id := range targetIds {
		if count, ok := cached[id]; ok {
			result[id] = &LikeStatus{Count: count}
		} else {
			missedIds = append(missedIds, id)
		}
	}

	switch targetType {
	case constants.TargetTypeActivity:
		activities, err := db.GetActivitiesByIds(ctx, missedIds)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to batch read activities")
		}
		for _, activity := range activities {
			result[activity.ActivityId] = &LikeStatus{Count: activity.LikesCount}
			if err := redis.SetLikeCount(ctx, targetType, activity.ActivityId, activity.LikesCount); err != nil {
				logrus.Warnf("failed to seed like count cache for activity %d: %v", activity.ActivityId, err)
			}
		}
	case constants.TargetTypePost:
		counts, err := db.BatchGetPostLikeCounts(ctx, missedIds)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to batch count post likes")
		}
		for _, id := range missedIds {
			result[id] = &LikeStatus{Count: counts[id]}
			if err := redis.SetLikeCount(ctx, targetType, id, counts[id]); err != nil {
				logrus.Warnf("failed to seed like count cache for post %d: %v", id, err)
			}
		}
	}

	if userId == 0 {
		return result, nil
	}

	var likedIds []int64
	if targetType == constants.TargetTypeActivity {
		likedIds, err = db.GetUserLikedActivityIds(ctx, userId, targetIds)
	} else {
		likedIds, err = db.GetUserLikedPostIds(ctx, userId, targetIds)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read user likes")
	}
	for _, id := range likedIds {
		if status, ok := result[id]; ok {
			status.IsLiked = true
		}
	}
	return result, nil
}

// GetLikeUsers lists the users who liked a target, newest like first,
// cursor-paginated.
func (s *LikeService) GetLikeUsers(ctx context.Context, targetType string, targetId int64, cursorToken string, limit int) (*LikeUserPage, error) {
	if err := checkTargetReadable(ctx, targetType, targetId); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var before *time.Time
	var beforeId int64
	if cursorToken != "" {
		at, id, err := cursor.Decode(cursorToken)
		if err != nil {
			return nil, err
		}
		before, beforeId = &at, id
	}

	var likes []model.Like
	var err error
	if targetType == constants.TargetTypeActivity {
		likes, err = db.ListActivityLikesPage(ctx, targetId, before, beforeId, limit+1)
	} else {
		likes, err = db.ListPostLikesPage(ctx, targetId, before, beforeId, limit+1)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list likes")
	}

	hasMore := len(likes) > limit
	if hasMore {
		likes = likes[:limit]
	}

	userIds := make([]int64, 0, len(likes))
	for _, like := range likes {
		userIds = append(userIds, like.UserId)
	}
	users, err := db.GetUsersByIds(ctx, userIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read like users")
	}
	usersById := make(map[int64]model.User, len(users))
	for _, user := range users {
		usersById[user.UserId] = user
	}

	page := &LikeUserPage{
		Items:   make([]LikeUserItem, 0, len(likes)),
		HasMore: hasMore,
	}
	for _, like := range likes {
		user := usersById[like.UserId]
		page.Items = append(page.Items, LikeUserItem{
			UserId:    like.UserId,
			UserName:  user.UserName,
			AvatarUrl: user.AvatarUrl,
			LikedAt:   like.CreatedAt,
		})
	}
	if hasMore && len(likes) > 0 {
		last := likes[len(likes)-1]
		page.NextCursor = cursor.Encode(last.CreatedAt, last.LikeId)
	}
	return page, nil
}

func (s *LikeService) isLiked(ctx context.Context, targetType string, targetId, userId int64) (bool, error) {
	var liked bool
	var err error
	if targetType == constants.TargetTypeActivity {
		liked, err = db.IsActivityLiked(ctx, targetId, userId)
	} else {
		liked, err = db.IsPostLiked(ctx, targetId, userId)
	}
	if err != nil {
		return false, errors.WithMessage(err, "failed to read like state")
	}
	return liked, nil
}

// likeCountCached is the read-path counter: cache first, relational
// store on a miss, and the miss seeds the cache. Mutations never call
// this; statusAfter always re-reads the authoritative count.
func (s *LikeService) likeCountCached(ctx context.Context, targetType string, targetId int64) (int64, error) {
	count, found, err := redis.GetLikeCount(ctx, targetType, targetId)
	if err != nil {
		logrus.Warnf("failed to read like count cache for %s %d: %v", targetType, targetId, err)
	} else if found {
		return count, nil
	}
	count, err = s.likeCount(ctx, targetType, targetId)
	if err != nil {
		return 0, err
	}
	if err := redis.SetLikeCount(ctx, targetType, targetId, count); err != nil {
		logrus.Warnf("failed to seed like count cache for %s %d: %v", targetType, targetId, err)
	}
	return count, nil
}

func (s *LikeService) likeCount(ctx context.Context, targetType string, targetId int64) (int64, error) {
	if targetType == constants.TargetTypeActivity {
		activity, err := db.GetActivity(ctx, targetId)
		if err != nil {
			return 0, errors.WithMessage(err, "failed to read activity counter")
		}
		return activity.LikesCount, nil
	}
	count, err := db.GetPostLikeCount(ctx, targetId)
	if err != nil {
		return 0, errors.WithMessage(err, "failed to count post likes")
	}
	return count, nil
}

// createLike reports whether a new row was written. A duplicate-key error
// means a concurrent request already created the like: absorbed, not
// surfaced. A foreign-key violation means the target vanished between
// resolve and write.
func (s *LikeService) createLike(ctx context.Context, targetType string, targetId, userId int64) (bool, error) {
	like := &model.Like{
		LikeId: utils.GenerateRowID(),
		UserId: userId,
	}
	var err error
	if targetType == constants.TargetTypeActivity {
		like.ActivityId = &targetId
		err = db.CreateActivityLike(ctx, like)
	} else {
		like.PostId = &targetId
		err = db.CreatePostLike(ctx, like)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return false, errno.ErrTargetNotFound
	}
	if err != nil {
		return false, errors.WithMessage(err, "failed to create like")
	}
	return true, nil
}

// removeLike reports whether a row was actually deleted. An absent row
// (concurrent unlike) is already the desired state.
func (s *LikeService) removeLike(ctx context.Context, targetType string, targetId, userId int64) (bool, error) {
	var deleted bool
	var err error
	if targetType == constants.TargetTypeActivity {
		deleted, err = db.DeleteActivityLike(ctx, targetId, userId)
	} else {
		deleted, err = db.DeletePostLike(ctx, targetId, userId)
	}
	if err != nil {
		return false, errors.WithMessage(err, "failed to delete like")
	}
	return deleted, nil
}

// statusAfter re-reads the count from the authoritative source after a
// mutation; it is never computed in-process, so concurrent writers are
// reflected. The cache copy is refreshed best-effort.
func (s *LikeService) statusAfter(ctx context.Context, targetType string, targetId int64, isLiked bool) (*LikeStatus, error) {
	count, err := s.likeCount(ctx, targetType, targetId)
	if err != nil {
		return nil, err
	}
	if err := redis.SetLikeCount(ctx, targetType, targetId, count); err != nil {
		logrus.Warnf("failed to refresh like count cache for %s %d: %v", targetType, targetId, err)
	}
	return &LikeStatus{IsLiked: isLiked, Count: count}, nil
}

func (s *LikeService) sendLikeNotification(targetType string, targetId, ownerId, actorId int64) {
	if s.producer == nil || ownerId == actorId {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := &mq.NotificationEvent{
		UserID:     ownerId,
		FromUserID: actorId,
		Type:       mq.NotificationTypeLike,
		TargetType: targetType,
		TargetID:   targetId,
		Timestamp:  time.Now().Unix(),
		EventID:    uuid.New().String(),
	}
	if err := s.producer.PublishNotificationEvent(ctx, event); err != nil {
		logrus.Warnf("failed to publish like notification: %v", err)
	}
}
