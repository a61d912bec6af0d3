package mq

// NotificationEvent is published once per qualifying mutation (new like,
// comment or follow). It is never published to the acting user, and never
// twice to the same recipient for one event.
type NotificationEvent struct {
	UserID     int64  `json:"user_id"`      // recipient
	FromUserID int64  `json:"from_user_id"` // actor
	Type       string `json:"type"`         // like, comment, reply, follow
	TargetType string `json:"target_type"`  // post or activity
	TargetID   int64  `json:"target_id"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	EventID    string `json:"event_id"`
}

const (
	NotificationEventExchange = "notification_events"
	NotificationEventQueue    = "notification_event_queue"

	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeReply   = "reply"
	NotificationTypeFollow  = "follow"
)
