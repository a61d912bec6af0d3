// Package oss signs avatar object URLs against the backing MinIO store.
// Comment listings collect every distinct avatar URL across a page and
// sign them in one batch rather than per comment.
package oss

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

// URLSigner converts stored avatar object keys into time-limited URLs.
type URLSigner interface {
	SignBatch(ctx context.Context, rawURLs []string) map[string]string
}

const signExpiry = 24 * time.Hour

type MinioSigner struct {
	client *minio.Client
	bucket string
}

func NewMinioSigner(client *minio.Client, bucket string) *MinioSigner {
	return &MinioSigner{client: client, bucket: bucket}
}

var _ URLSigner = (*MinioSigner)(nil)

// SignBatch resolves each distinct raw URL to a presigned GET URL. Entries
// that fail to sign fall back to the raw value so a signing outage never
// blanks avatars.
func (s *MinioSigner) SignBatch(ctx context.Context, rawURLs []string) map[string]string {
	signed := make(map[string]string, len(rawURLs))
	for _, raw := range rawURLs {
		if raw == "" {
			continue
		}
		objectName := s.objectNameFromURL(raw)
		if objectName == "" {
			signed[raw] = raw
			continue
		}
		u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, signExpiry, url.Values{})
		if err != nil {
			logrus.Warnf("failed to presign avatar %q: %v", raw, err)
			signed[raw] = raw
			continue
		}
		signed[raw] = u.String()
	}
	return signed
}

// objectNameFromURL accepts either a bare object key ("avatar/42.jpg") or a
// full URL whose path contains the bucket prefix.
func (s *MinioSigner) objectNameFromURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return strings.TrimPrefix(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	if rest, ok := strings.CutPrefix(path, s.bucket+"/"); ok {
		return rest
	}
	return path
}
