package model

import "time"

// Activity carries denormalized counters. likes_count and comments_count
// are adjusted inside the same transaction as the source-row mutation and
// reconciled out-of-band by the counter verifier; views_count is
// maintained by the presentation layer and only ever read here.
type Activity struct {
	ActivityId    int64      `json:"activity_id" gorm:"primaryKey"`
	UserId        int64      `json:"user_id" gorm:"index"`
	Content       string     `json:"content"`
	LikesCount    int64      `json:"likes_count" gorm:"default:0"`
	CommentsCount int64      `json:"comments_count" gorm:"default:0"`
	ViewsCount    int64      `json:"views_count" gorm:"default:0"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at" gorm:"index"`
}
