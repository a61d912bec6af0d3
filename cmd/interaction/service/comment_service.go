package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

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
	"Loopline.com/pkg/oss"
	"Loopline.com/pkg/utils"
)

type CommentService struct {
	ctx      context.Context
	producer mq.NotificationProducer
	signer   oss.URLSigner
}

func NewCommentService(ctx context.Context, producer mq.NotificationProducer, signer oss.URLSigner) *CommentService {
	return &CommentService{ctx: ctx, producer: producer, signer: signer}
}

type CreateCommentRequest struct {
	TargetType string `json:"target_type"`
	TargetId   int64  `json:"target_id"`
	UserId     int64  `json:"user_id"`
	Content    string `json:"content"`
	ParentId   *int64 `json:"parent_id,omitempty"`
}

type ListCommentsRequest struct {
	TargetType     string `json:"target_type"`
	TargetId       int64  `json:"target_id"`
	Cursor         string `json:"cursor,omitempty"`
	Limit          int    `json:"limit"`
	ParentId       *int64 `json:"parent_id,omitempty"`
	IncludeReplies bool   `json:"include_replies"`
	UserId         int64  `json:"user_id,omitempty"`
}

type CommentAuthor struct {
	UserId    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	AvatarUrl string `json:"avatar_url"`
}

type CommentItem struct {
	CommentId  int64         `json:"comment_id"`
	Content    string        `json:"content"`
	Author     CommentAuthor `json:"author"`
	ParentId   *int64        `json:"parent_id,omitempty"`
	ReplyCount int64         `json:"reply_count"`
	Replies    []CommentItem `json:"replies,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type CommentPage struct {
	Items      []CommentItem `json:"items"`
	TotalCount int64         `json:"total_count"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type DeleteCommentResult struct {
	HardDeleted bool `json:"hard_deleted"`
}

var markupTagPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeContent strips injected markup and collapses surrounding
// whitespace. Validation happens on the cleaned value.
func sanitizeContent(content string) string {
	cleaned := markupTagPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(cleaned)
}

func validateCommentContent(content string) error {
	length := utf8.RuneCountInString(content)
	if length < constants.MinCommentLength {
		return errno.RequestErr.WithMessage("comment content cannot be empty")
	}
	if length > constants.MaxCommentLength {
		return errno.RequestErr.WithMessage("comment too long, maximum 500 characters allowed")
	}
	return nil
}

// CreateComment validates target and parent, persists the row and
// dispatches notifications asynchronously. Notification failures never
// fail the creation.
func (s *CommentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*model.Comment, error) {
	content := sanitizeContent(req.Content)
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}

	ownerId, err := resolveTargetOwner(ctx, req.TargetType, req.TargetId)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"target_type": req.TargetType, "target_id": req.TargetId, "user_id": req.UserId,
		}).Warnf("create comment rejected: %v", err)
		return nil, err
	}

	var parentAuthorId int64
	if req.ParentId != nil {
		parent, err := s.validateParent(ctx, *req.ParentId, req.TargetType, req.TargetId)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"parent_id": *req.ParentId, "target_id": req.TargetId,
			}).Warnf("create comment rejected: %v", err)
			return nil, err
		}
		parentAuthorId = parent.UserId
	}

	comment := &model.Comment{
		CommentId: utils.GenerateRowID(),
		UserId:    req.UserId,
		ParentId:  req.ParentId,
		Content:   content,
	}
	if req.TargetType == constants.TargetTypeActivity {
		comment.ActivityId = &req.TargetId
	} else {
		comment.PostId = &req.TargetId
	}

	if err := db.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errno.ErrTargetNotFound
		}
		return nil, errors.WithMessage(err, "failed to create comment")
	}

	s.refreshCommentCountCache(ctx, req.TargetType, req.TargetId)
	go s.sendCommentNotifications(req.TargetType, req.TargetId, comment.CommentId, req.UserId, ownerId, parentAuthorId)

	return comment, nil
}

/// validateParent enforces the reply invariants: the parent must exist,
// must not be soft-deleted, and must belong to the same target.
func (s *CommentService) validateParent(ctx context.Context, parentId int64, targetType string, targetId int64) (*model.Comment, error) {
	parent, err := db.GetComment(ctx, parentId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrParentNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read parent comment")
	}
	if parent.DeletedAt != nil {
		return nil, errno.ErrParentDeleted
	}
	if parent.PostId == nil && parent.ActivityId == nil {
		// corrupt row, not a race: surface it
		return nil, errno.ErrTargetMissingReference
	}
	switch targetType {
	case constants.TargetTypeActivity:
		if parent.ActivityId == nil || *parent.ActivityId != targetId {
			return nil, errno.ErrParentMismatch
		}
	default:
		if parent.PostId == nil || *parent.PostId != targetId {
			return nil, errno.ErrParentMismatch
		}
	}
	return parent, nil
}

// ListComments serves two query modes: the top-level page of a target
// (newest first) or the expansion of one thread (oldest first). Soft
// deleted comments are filtered from both.
func (s *CommentService) ListComments(ctx context.Context, req *ListCommentsRequest) (*CommentPage, error) {
	if err := checkTargetReadable(ctx, req.TargetType, req.TargetId); err != nil {
		return nil, err
	}
	limit := clampLimit(req.Limit)

	var at *time.Time
	var atId int64
	if req.Cursor != "" {
		decoded, id, err := cursor.Decode(req.Cursor)
		if err != nil {
			return nil, err
		}
		at, atId = &decoded, id
	}

	if req.ParentId != nil {
		return s.listReplies(ctx, *req.ParentId, req.TargetType, req.TargetId, at, atId, limit)
	}
	return s.listTopLevel(ctx, req, at, atId, limit)
}

func (s *CommentService) listTopLevel(ctx context.Context, req *ListCommentsRequest, before *time.Time, beforeId int64, limit int) (*CommentPage, error) {
	comments, err := db.ListTopLevelCommentsPage(ctx, req.TargetType, req.TargetId, before, beforeId, limit+1)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list comments")
	}
	hasMore := len(comments) > limit
	if hasMore {
		comments = comments[:limit]
	}

	commentIds := make([]int64, 0, len(comments))
	for _, comment := range comments {
		commentIds = append(commentIds, comment.CommentId)
	}

	// one group-by over the whole page, never one count query per comment
	replyCounts, err := db.BatchGetReplyCounts(ctx, commentIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to count replies")
	}

	var repliesByParent map[int64][]model.Comment
	if req.IncludeReplies {
		repliesByParent, err = s.fetchRepliesForParents(ctx, commentIds)
		if err != nil {
			return nil, err
		}
	}

	totalCount, err := db.CountVisibleTopLevelComments(ctx, req.TargetType, req.TargetId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to count visible comments")
	}

	items := make([]CommentItem, 0, len(comments))
	for _, comment := range comments {
		item := s.toItem(comment)
		item.ReplyCount = replyCounts[comment.CommentId]
		for _, reply := range repliesByParent[comment.CommentId] {
			item.Replies = append(item.Replies, s.toItem(reply))
		}
		items = append(items, item)
	}
	if err := s.attachAuthors(ctx, items); err != nil {
		return nil, err
	}

	page := &CommentPage{
		Items:      items,
		TotalCount: totalCount,
		HasMore:    hasMore,
	}
	if hasMore && len(comments) > 0 {
		last := comments[len(comments)-1]
		page.NextCursor = cursor.Encode(last.CreatedAt, last.CommentId)
	}
	return page, nil
}

func (s *CommentService) listReplies(ctx context.Context, parentId int64, targetType string, targetId int64, after *time.Time, afterId int64, limit int) (*CommentPage, error) {
	if _, err := s.validateParentForListing(ctx, parentId, targetType, targetId); err != nil {
		return nil, err
	}

	replies, err := db.ListRepliesPage(ctx, parentId, after, afterId, limit+1)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to list replies")
	}
	hasMore := len(replies) > limit
	if hasMore {
		replies = replies[:limit]
	}

	totalCount, err := db.BatchGetReplyCounts(ctx, []int64{parentId})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to count replies")
	}

	items := make([]CommentItem, 0, len(replies))
	for _, reply := range replies {
		items = append(items, s.toItem(reply))
	}
	if err := s.attachAuthors(ctx, items); err != nil {
		return nil, err
	}

	page := &CommentPage{
		Items:      items,
		TotalCount: totalCount[parentId],
		HasMore:    hasMore,
	}
	if hasMore && len(replies) > 0 {
		last := replies[len(replies)-1]
		page.NextCursor = cursor.Encode(last.CreatedAt, last.CommentId)
	}
	return page, nil
}

// validateParentForListing is looser than validateParent: expanding the
// thread of a soft-deleted parent is allowed (its replies stay visible),
// but the parent must exist and belong to the requested target.
func (s *CommentService) validateParentForListing(ctx context.Context, parentId int64, targetType string, targetId int64) (*model.Comment, error) {
	parent, err := db.GetComment(ctx, parentId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrParentNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read parent comment")
	}
	switch targetType {
	case constants.TargetTypeActivity:
		if parent.ActivityId == nil || *parent.ActivityId != targetId {
			return nil, errno.ErrParentMismatch
		}
	default:
		if parent.PostId == nil || *parent.PostId != targetId {
			return nil, errno.ErrParentMismatch
		}
	}
	return parent, nil
}

func (s *CommentService) fetchRepliesForParents(ctx context.Context, parentIds []int64) (map[int64][]model.Comment, error) {
	grouped := make(map[int64][]model.Comment, len(parentIds))
	if len(parentIds) == 0 {
		return grouped, nil
	}
	replies, err := db.ListRepliesForParents(ctx, parentIds)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to fetch replies")
	}
	for _, reply := range replies {
		if reply.ParentId == nil {
			continue
		}
		grouped[*reply.ParentId] = append(grouped[*reply.ParentId], reply)
	}
	return grouped, nil
}

func (s *CommentService) toItem(comment model.Comment) CommentItem {
	return CommentItem{
		CommentId: comment.CommentId,
		Content:   comment.Content,
		Author:    CommentAuthor{UserId: comment.UserId},
		ParentId:  comment.ParentId,
		CreatedAt: comment.CreatedAt,
	}
}

// attachAuthors resolves user info for the whole assembled tree with one
// query, then signs every distinct avatar URL in a single batch and
// redistributes the results.
func (s *CommentService) attachAuthors(ctx context.Context, items []CommentItem) error {
	userIds := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	var collect func(items []CommentItem)
	collect = func(items []CommentItem) {
		for _, item := range items {
			if _, ok := seen[item.Author.UserId]; !ok {
				seen[item.Author.UserId] = struct{}{}
				userIds = append(userIds, item.Author.UserId)
			}
			collect(item.Replies)
		}
	}
	collect(items)

	users, err := db.GetUsersByIds(ctx, userIds)
	if err != nil {
		return errors.WithMessage(err, "failed to read comment authors")
	}
	usersById := make(map[int64]model.User, len(users))
	for _, user := range users {
		usersById[user.UserId] = user
	}

	avatarSet := make(map[string]struct{}, len(users))
	for _, user := range users {
		if user.AvatarUrl != "" {
			avatarSet[user.AvatarUrl] = struct{}{}
		}
	}
	signed := map[string]string{}
	if s.signer != nil && len(avatarSet) > 0 {
		avatars := make([]string, 0, len(avatarSet))
		for avatar := range avatarSet {
			avatars = append(avatars, avatar)
		}
		signed = s.signer.SignBatch(ctx, avatars)
	}

	var apply func(items []CommentItem)
	apply = func(items []CommentItem) {
		for i := range items {
			user := usersById[items[i].Author.UserId]
			avatar := user.AvatarUrl
			if signedURL, ok := signed[avatar]; ok {
				avatar = signedURL
			}
			items[i].Author.UserName = user.UserName
			items[i].Author.AvatarUrl = avatar
			apply(items[i].Replies)
		}
	}
	apply(items)
	return nil
}

// DeleteComment applies the per-comment state machine: soft delete when
// replies exist (content retained, hidden from listings), hard delete
// otherwise. A comment with children is never removed outright, or the
// replies' parent references would dangle.
func (s *CommentService) DeleteComment(ctx context.Context, commentId, userId int64, isAdmin bool) (*DeleteCommentResult, error) {
	comment, err := db.GetComment(ctx, commentId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrCommentNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read comment")
	}
	if comment.PostId == nil && comment.ActivityId == nil {
		return nil, errno.ErrTargetMissingReference
	}
	if comment.UserId != userId && !isAdmin {
		logrus.WithFields(logrus.Fields{"comment_id": commentId, "user_id": userId}).
			Warn("delete comment rejected: not author or admin")
		return nil, errno.ErrUnauthorized
	}
	if comment.DeletedAt != nil {
		// already soft-deleted; deleting again has no further effect
		return &DeleteCommentResult{HardDeleted: false}, nil
	}

	hasReplies, err := db.HasReplies(ctx, commentId)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to check replies")
	}

	if hasReplies {
		if err := db.SoftDeleteComment(ctx, commentId); err != nil {
			return nil, errors.WithMessage(err, "failed to soft delete comment")
		}
		return &DeleteCommentResult{HardDeleted: false}, nil
	}

	// HardDeleteComment re-checks for replies inside its transaction and
	// falls back to a soft delete when one slipped in since the check
	// above, so a reply's parent_id always points at an existing row.
	hardDeleted, err := db.HardDeleteComment(ctx, comment)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to delete comment")
	}
	if hardDeleted {
		targetType, targetId := commentTarget(comment)
		s.refreshCommentCountCache(ctx, targetType, targetId)
	}
	return &DeleteCommentResult{HardDeleted: hardDeleted}, nil
}

// GetCommentCount counts every comment row including soft-deleted ones.
// The displayed counter must not retroactively shrink when a comment
// with replies is hidden, so this deliberately diverges from the
// visibility rules of ListComments.
func (s *CommentService) GetCommentCount(ctx context.Context, targetType string, targetId int64) (int64, error) {
	if err := checkTargetReadable(ctx, targetType, targetId); err != nil {
		return 0, err
	}
	count, found, err := redis.GetCommentCount(ctx, targetType, targetId)
	if err != nil {
		logrus.Warnf("failed to read comment count cache for %s %d: %v", targetType, targetId, err)
	} else if found {
		return count, nil
	}
	count, err = db.CountAllComments(ctx, targetType, targetId)
	if err != nil {
		return 0, errors.WithMessage(err, "failed to count comments")
	}
	if err := redis.SetCommentCount(ctx, targetType, targetId, count); err != nil {
		logrus.Warnf("failed to seed comment count cache for %s %d: %v", targetType, targetId, err)
	}
	return count, nil
}

func commentTarget(comment *model.Comment) (string, int64) {
	if comment.ActivityId != nil {
		return constants.TargetTypeActivity, *comment.ActivityId
	}
	if comment.PostId != nil {
		return constants.TargetTypePost, *comment.PostId
	}
	return "", 0
}

func (s *CommentService) refreshCommentCountCache(ctx context.Context, targetType string, targetId int64) {
	count, err := db.CountAllComments(ctx, targetType, targetId)
	if err != nil {
		logrus.Warnf("failed to recount comments for %s %d: %v", targetType, targetId, err)
		return
	}
	if err := redis.SetCommentCount(ctx, targetType, targetId, count); err != nil {
		logrus.Warnf("failed to refresh comment count cache for %s %d: %v", targetType, targetId, err)
	}
}

// sendCommentNotifications notifies the target owner and, for replies,
// the parent comment's author. Each recipient is notified at most once
// and the acting user never notifies themselves.
func (s *CommentService) sendCommentNotifications(targetType string, targetId, commentId, actorId, ownerId, parentAuthorId int64) {
	if s.producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notified := map[int64]struct{}{actorId: {}}

	if _, ok := notified[ownerId]; !ok {
		notified[ownerId] = struct{}{}
		event := &mq.NotificationEvent{
			UserID:     ownerId,
			FromUserID: actorId,
			Type:       mq.NotificationTypeComment,
			TargetType: targetType,
			TargetID:   targetId,
			Timestamp:  time.Now().Unix(),
			EventID:    uuid.New().String(),
		}
		if err := s.producer.PublishNotificationEvent(ctx, event); err != nil {
			logrus.Warnf("failed to publish comment notification: %v", err)
		}
	}

	if parentAuthorId == 0 {
		return
	}
	if _, ok := notified[parentAuthorId]; ok {
		return
	}
	event := &mq.NotificationEvent{
		UserID:     parentAuthorId,
		FromUserID: actorId,
		Type:       mq.NotificationTypeReply,
		TargetType: targetType,
		TargetID:   commentId,
		Timestamp:  time.Now().Unix(),
		EventID:    uuid.New().String(),
	}
	if err := s.producer.PublishNotificationEvent(ctx, event); err != nil {
		logrus.Warnf("failed to publish reply notification: %v", err)
	}
}
