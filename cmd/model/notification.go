package model

import "time"

// Notification rows are written by the mq consumer, never by the engines
// directly; a failed dispatch must not fail the originating mutation.
type Notification struct {
	NotificationId int64     `json:"notification_id" gorm:"primaryKey;autoIncrement"`
	UserId         int64     `json:"user_id" gorm:"index"`
	FromUserId     int64     `json:"from_user_id"`
	Type           string    `json:"type"`
	TargetType     string    `json:"target_type"`
	TargetId       int64     `json:"target_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
}
