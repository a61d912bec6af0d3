package constants

const (
	// TargetTypePost and TargetTypeActivity are the two entities
	// interactions attach to.
	TargetTypePost     = "post"
	TargetTypeActivity = "activity"

	// DefaultLimit is the page size used when the caller passes none.
	DefaultLimit = 20
	// MaxLimit is the hard ceiling for any single list page.
	MaxLimit = 50
	// FollowStatusBatchLimit caps GetFollowStatusBatch input size.
	FollowStatusBatchLimit = 50
	// CounterVerifyDefaultLimit bounds one verifier sweep.
	CounterVerifyDefaultLimit = 100

	// MaxCommentLength is measured in runes, not bytes.
	MaxCommentLength = 500
	MinCommentLength = 1
)
