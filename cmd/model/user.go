package model

import "time"

type User struct {
	UserId    int64      `json:"user_id" gorm:"primaryKey"`
	UserName  string     `json:"user_name"`
	AvatarUrl string     `json:"avatar_url"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}
