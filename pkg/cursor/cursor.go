// Package cursor implements the opaque pagination token shared by every
// list operation. A token encodes the (createdAt, id) position of the last
// row on a page; listing resumes strictly after that position regardless of
// concurrent inserts or deletes.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Loopline.com/pkg/errno"
)

// Encode packs a row position into an opaque token. Nanosecond precision
// keeps the round trip lossless for any timestamp the store hands back;
// a truncating encoding would skip rows sharing the last row's instant.
func Encode(createdAt time.Time, id int64) string {
	raw := fmt.Sprintf("%d:%d", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode unpacks a token produced by Encode. A token that fails to decode
// raises ErrInvalidCursor; callers must not treat that as an empty page.
func Decode(token string) (time.Time, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, 0, errno.ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, errno.ErrInvalidCursor
	}
	ns, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, errno.ErrInvalidCursor
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, errno.ErrInvalidCursor
	}
	return time.Unix(0, ns), id, nil
}
