package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Loopline.com/cmd/model"
	"Loopline.com/cmd/relation/dal/db"
	"Loopline.com/pkg/constants"
	"Loopline.com/pkg/cursor"
	"Loopline.com/pkg/errno"
	"Loopline.com/pkg/mq"
	"Loopline.com/pkg/oss"
)

// RelationService manages the directed follow graph. Edges are plain
// rows guarded by a unique pair index; mutual relationships are derived
// at read time, never stored.
type RelationService struct {
	ctx      context.Context
	producer mq.NotificationProducer
	signer   oss.URLSigner
}

func NewRelationService(ctx context.Context, producer mq.NotificationProducer, signer oss.URLSigner) *RelationService {
	return &RelationService{ctx: ctx, producer: producer, signer: signer}
}

type FollowResult struct {
	WasNew   bool `json:"was_new"`
	IsMutual bool `json:"is_mutual"`
}

type UnfollowResult struct {
	WasDeleted bool `json:"was_deleted"`
}

type FollowStatus struct {
	IsFollowing bool `json:"is_following"`
	IsMutual    bool `json:"is_mutual"`
}

type FollowUserItem struct {
	UserId     int64     `json:"user_id"`
	UserName   string    `json:"user_name"`
	AvatarUrl  string    `json:"avatar_url"`
	IsMutual   bool      `json:"is_mutual"`
	FollowedAt time.Time `json:"followed_at"`
}

type FollowPage struct {
	Items      []FollowUserItem `json:"items"`
	HasMore    bool             `json:"has_more"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// FollowUser creates the edge from follower to target. Following
// yourself is rejected, following twice is absorbed, and a concurrent
// duplicate insert is indistinguishable from the latter.
func (s *RelationService) FollowUser(ctx context.Context, followerId, targetId int64) (*FollowResult, error) {
	if followerId == targetId {
		logrus.WithFields(logrus.Fields{"user_id": followerId}).
			Warn("follow rejected: cannot follow yourself")
		return nil, errno.ErrSelfFollow
	}
	target, err := db.GetUser(ctx, targetId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrTargetNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to resolve target user")
	}
	if !target.IsActive {
		return nil, errno.ErrTargetInactive
	}

	wasNew, err := s.createFollow(ctx, followerId, targetId)
	if err != nil {
		return nil, err
	}

	followsBack, err := db.IsFollowing(ctx, targetId, followerId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read reverse edge")
	}

	if wasNew {
		go s.sendFollowNotification(targetId, followerId)
	}
	return &FollowResult{WasNew: wasNew, IsMutual: followsBack}, nil
}

// UnfollowUser removes the edge if present. Unfollowing someone you do
// not follow reports WasDeleted false, not an error.
func (s *RelationService) UnfollowUser(ctx context.Context, followerId, targetId int64) (*UnfollowResult, error) {
	if followerId == targetId {
		return nil, errno.ErrSelfFollow
	}
	deleted, err := db.DeleteFollow(ctx, followerId, targetId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to delete follow")
	}
	return &UnfollowResult{WasDeleted: deleted}, nil
}

// ListFollowers pages through the users following userId, newest edge
// first. Mutuality is resolved for the whole page with one IN query.
func (s *RelationService) ListFollowers(ctx context.Context, userId int64, cursorToken string, limit int) (*FollowPage, error) {
	follows, hasMore, err := s.pageEdges(ctx, userId, cursorToken, limit, db.ListFollowersPage)
	if err != nil {
		return nil, err
	}
	userIds := make([]int64, 0, len(follows))
	for _, follow := range follows {
		userIds = append(userIds, follow.FollowerId)
	}
	// mutual for a follower means the list owner follows them back
	mutualSet, err := db.GetFollowedSet(ctx, userId, userIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to resolve mutual follows")
	}
	return s.buildPage(ctx, follows, userIds, mutualSet, hasMore)
}

// ListFollowing pages through the users userId follows.
func (s *RelationService) ListFollowing(ctx context.Context, userId int64, cursorToken string, limit int) (*FollowPage, error) {
	follows, hasMore, err := s.pageEdges(ctx, userId, cursorToken, limit, db.ListFollowingPage)
	if err != nil {
		return nil, err
	}
	userIds := make([]int64, 0, len(follows))
	for _, follow := range follows {
		userIds = append(userIds, follow.FollowingId)
	}
	// mutual for a followee means they follow the list owner back
	mutualSet, err := db.GetFollowerSet(ctx, userId, userIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to resolve mutual follows")
	}
	return s.buildPage(ctx, follows, userIds, mutualSet, hasMore)
}

// GetFollowStatusBatch resolves the viewer's relationship with up to
// fifty users in two queries. The viewer's own id, if present, is
// silently dropped from the result.
func (s *RelationService) GetFollowStatusBatch(ctx context.Context, viewerId int64, targetIds []int64) (map[int64]FollowStatus, error) {
	if len(targetIds) > constants.FollowStatusBatchLimit {
		return nil, errno.ErrLimitExceeded
	}
	filtered := make([]int64, 0, len(targetIds))
	for _, id := range targetIds {
		if id != viewerId {
			filtered = append(filtered, id)
		}
	}

	following, err := db.GetFollowedSet(ctx, viewerId, filtered)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read outgoing edges")
	}
	followers, err := db.GetFollowerSet(ctx, viewerId, filtered)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read incoming edges")
	}

	statuses := make(map[int64]FollowStatus, len(filtered))
	for _, id := range filtered {
		_, isFollowing := following[id]
		_, followsBack := followers[id]
		statuses[id] = FollowStatus{
			IsFollowing: isFollowing,
			IsMutual:    isFollowing && followsBack,
		}
	}
	return statuses, nil
}

func (s *RelationService) GetFollowCounts(ctx context.Context, userId int64) (followers, following int64, err error) {
	followers, err = db.CountFollowers(ctx, userId)
	if err != nil {
		return 0, 0, errors.WithMessage(err, "failed to count followers")
	}
	following, err = db.CountFollowing(ctx, userId)
	if err != nil {
		return 0, 0, errors.WithMessage(err, "failed to count following")
	}
	return followers, following, nil
}

// createFollow absorbs the duplicate-insert race: a uniqueness violation
// means another request created the same edge first.
func (s *RelationService) createFollow(ctx context.Context, followerId, targetId int64) (bool, error) {
	follow := &model.Follow{
		FollowerId:  followerId,
		FollowingId: targetId,
	}
	err := db.CreateFollow(ctx, follow)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithMessage(err, "failed to create follow")
	}
	return true, nil
}

func (s *RelationService) pageEdges(
	ctx context.Context,
	userId int64,
	cursorToken string,
	limit int,
	list func(context.Context, int64, *time.Time, int64, int) ([]model.Follow, error),
) ([]model.Follow, bool, error) {
	limit = clampLimit(limit)
	var before *time.Time
	var beforeId int64
	if cursorToken != "" {
		at, id, err := cursor.Decode(cursorToken)
		if err != nil {
			return nil, false, err
		}
		before, beforeId = &at, id
	}
	follows, err := list(ctx, userId, before, beforeId, limit+1)
	if err != nil {
		return nil, false, errors.WithMessage(err, "failed to list follow edges")
	}
	hasMore := len(follows) > limit
	if hasMore {
		follows = follows[:limit]
	}
	return follows, hasMore, nil
}

func (s *RelationService) buildPage(ctx context.Context, follows []model.Follow, userIds []int64, mutualSet map[int64]struct{}, hasMore bool) (*FollowPage, error) {
	users, err := db.GetUsersByIds(ctx, userIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read listed users")
	}
	usersById := make(map[int64]model.User, len(users))
	for _, user := range users {
		usersById[user.UserId] = user
	}

	signed := map[string]string{}
	if s.signer != nil {
		avatars := make([]string, 0, len(users))
		for _, user := range users {
			if user.AvatarUrl != "" {
				avatars = append(avatars, user.AvatarUrl)
			}
		}
		if len(avatars) > 0 {
			signed = s.signer.SignBatch(ctx, avatars)
		}
	}

	page := &FollowPage{
		Items:   make([]FollowUserItem, 0, len(follows)),
		HasMore: hasMore,
	}
	for i, follow := range follows {
		user, ok := usersById[userIds[i]]
		if !ok {
			// account deleted after the edge was created
			continue
		}
		avatar := user.AvatarUrl
		if signedURL, ok := signed[avatar]; ok {
			avatar = signedURL
		}
		_, isMutual := mutualSet[user.UserId]
		page.Items = append(page.Items, FollowUserItem{
			UserId:     user.UserId,
			UserName:   user.UserName,
			AvatarUrl:  avatar,
			IsMutual:   isMutual,
			FollowedAt: follow.CreatedAt,
		})
	}
	if hasMore && len(follows) > 0 {
		last := follows[len(follows)-1]
		page.NextCursor = cursor.Encode(last.CreatedAt, last.FollowId)
	}
	return page, nil
}

func (s *RelationService) sendFollowNotification(targetId, followerId int64) {
	if s.producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := &mq.NotificationEvent{
		UserID:     targetId,
		FromUserID: followerId,
		Type:       mq.NotificationTypeFollow,
		TargetType: "user",
		TargetID:   followerId,
		Timestamp:  time.Now().Unix(),
		EventID:    uuid.New().String(),
	}
	if err := s.producer.PublishNotificationEvent(ctx, event); err != nil {
		logrus.Warnf("failed to publish follow notification: %v", err)
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
