package model

import "time"

// Like references exactly one of PostId or ActivityId. One row per
// (user, target), enforced by the composite unique indexes; the engine
// treats a violation as "already liked".
type Like struct {
	LikeId     int64     `json:"like_id" gorm:"primaryKey"`
	UserId     int64     `json:"user_id" gorm:"uniqueIndex:uk_like_user_post;uniqueIndex:uk_like_user_activity"`
	PostId     *int64    `json:"post_id" gorm:"uniqueIndex:uk_like_user_post;index"`
	ActivityId *int64    `json:"activity_id" gorm:"uniqueIndex:uk_like_user_activity;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Bookmark is scoped to posts only.
type Bookmark struct {
	BookmarkId int64     `json:"bookmark_id" gorm:"primaryKey"`
	UserId     int64     `json:"user_id" gorm:"uniqueIndex:uk_bookmark_user_post"`
	PostId     int64     `json:"post_id" gorm:"uniqueIndex:uk_bookmark_user_post;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment belongs to exactly one of PostId or ActivityId. DeletedAt set
// with content retained marks a soft delete; rows without replies are
// removed outright instead.
type Comment struct {
	CommentId  int64      `json:"comment_id" gorm:"primaryKey"`
	UserId     int64      `json:"user_id" gorm:"index"`
	PostId     *int64     `json:"post_id" gorm:"index"`
	ActivityId *int64     `json:"activity_id" gorm:"index"`
	ParentId   *int64     `json:"parent_id" gorm:"index"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}
