package model

import "time"

// Follow is an edge from FollowerId to FollowingId, unique on the pair.
// Mutuality is derived by probing the reverse edge, never stored.
type Follow struct {
	FollowId    int64     `json:"follow_id" gorm:"primaryKey;autoIncrement"`
	FollowerId  int64     `json:"follower_id" gorm:"uniqueIndex:uk_follow_pair;index"`
	FollowingId int64     `json:"following_id" gorm:"uniqueIndex:uk_follow_pair;index"`
	CreatedAt   time.Time `json:"created_at"`
}
