package errno

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Errno is the error type surfaced by every engine operation. Code is stable
// across releases; callers map it to a transport-level status themselves.
type Errno struct {
	Code int32
	// StatusCode is the machine-readable identifier, e.g. "TARGET_NOT_FOUND".
	StatusCode string
	Msg        string
}

func (e Errno) Error() string {
	return fmt.Sprintf("[%d:%s] %s", e.Code, e.StatusCode, e.Msg)
}

// WithMessage returns a copy of the errno with a more specific message,
// keeping code and status code intact.
func (e Errno) WithMessage(msg string) Errno {
	e.Msg = msg
	return e
}

func NewErrno(code int32, statusCode, msg string) Errno {
	return Errno{Code: code, StatusCode: statusCode, Msg: msg}
}

var (
	Success    = NewErrno(0, "OK", "success")
	RequestErr = NewErrno(10001, "BAD_REQUEST", "invalid request parameter")
	ServiceErr = NewErrno(10002, "SERVICE_ERROR", "service internal error")
	DBErr      = NewErrno(10003, "DB_ERROR", "database operation failed")
	RedisErr   = NewErrno(10004, "REDIS_ERROR", "cache operation failed")

	ErrTargetNotFound  = NewErrno(20001, "TARGET_NOT_FOUND", "target does not exist or is not visible")
	ErrParentNotFound  = NewErrno(20002, "PARENT_NOT_FOUND", "parent comment does not exist")
	ErrParentDeleted   = NewErrno(20003, "PARENT_DELETED", "parent comment has been deleted")
	ErrParentMismatch  = NewErrno(20004, "PARENT_MISMATCH", "parent comment belongs to a different target")
	ErrCommentNotFound = NewErrno(20005, "COMMENT_NOT_FOUND", "comment does not exist")
	ErrUnauthorized    = NewErrno(20006, "UNAUTHORIZED", "operation not permitted for this user")
	ErrSelfFollow      = NewErrno(20007, "SELF_FOLLOW", "users cannot follow themselves")
	ErrTargetInactive  = NewErrno(20008, "TARGET_INACTIVE", "target user is not active")
	ErrLimitExceeded   = NewErrno(20009, "LIMIT_EXCEEDED", "requested batch size exceeds the allowed maximum")
	ErrInvalidCursor   = NewErrno(20010, "INVALID_CURSOR", "pagination cursor failed to decode")

	// ErrSelfLike is reserved; no current operation raises it.
	ErrSelfLike = NewErrno(20011, "SELF_LIKE", "users cannot like their own content")

	// ErrTargetMissingReference signals a corrupt row: a comment carrying
	// neither a post reference nor an activity reference. Never absorbed.
	ErrTargetMissingReference = NewErrno(20012, "TARGET_MISSING_REFERENCE", "comment references no target")
)

// Is lets errors.Is match two errnos by code.
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// ConvertErr normalizes an arbitrary error into an Errno. Known storage
// errors map to their domain meaning; anything else becomes ServiceErr.
func ConvertErr(err error) Errno {
	var e Errno
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTargetNotFound
	}
	return ServiceErr.WithMessage(err.Error())
}
