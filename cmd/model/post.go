package model

import "time"

// Post carries no denormalized interaction counters; like and comment
// counts for posts are computed from the source rows on read.
type Post struct {
	PostId    int64      `json:"post_id" gorm:"primaryKey"`
	UserId    int64      `json:"user_id" gorm:"index"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Published bool       `json:"published" gorm:"default:false"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}
