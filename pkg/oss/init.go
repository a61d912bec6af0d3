package oss

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"Loopline.com/config"
)

// Init builds the shared signer from config. Returns nil on failure so
// callers can run without signing (avatars stay unsigned).
func Init() *MinioSigner {
	cfg := config.ConfigInfo.Minio
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logrus.Errorf("failed to create MinIO client: %v", err)
		return nil
	}
	logrus.Infof("MinIO client initialized, endpoint: %s", cfg.Endpoint)
	return NewMinioSigner(client, cfg.Bucket)
}
