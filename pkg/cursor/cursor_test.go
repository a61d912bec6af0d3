package cursor

import (
	"errors"
	"testing"
	"time"

	"Loopline.com/pkg/errno"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 45, 123_000_000, time.UTC)
	token := Encode(at, 987654321)

	gotTime, gotID, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if gotID != 987654321 {
		t.Errorf("id = %d, want 987654321", gotID)
	}
	if !gotTime.Equal(at) {
		t.Errorf("time = %v, want %v", gotTime, at)
	}
}

func TestDecodeInvalidTokens(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"NotBase64", "%%%not-base64%%%"},
		{"MissingSeparator", "MTIzNDU"},          // "12345"
		{"NonNumericTime", "YWJjOjEyMw"},         // "abc:123"
		{"NonNumericID", "MTIzOmFiYw"},           // "123:abc"
		{"Empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.token)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, errno.ErrInvalidCursor) {
				t.Errorf("err = %v, want ErrInvalidCursor", err)
			}
		})
	}
}
