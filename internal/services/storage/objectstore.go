package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/helpers"
)

// ObjectStore uploads snapshots to an S3-compatible bucket.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	quality int
}

func NewObjectStore(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.ObjectStoreEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, ""),
		Secure: cfg.ObjectStoreUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.ObjectStoreBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.ObjectStoreBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.ObjectStoreBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.ObjectStoreBucket, err)
		}
		log.Info().Str("bucket", cfg.ObjectStoreBucket).Msg("Created snapshot bucket")
	}

	log.Info().
		Str("endpoint", cfg.ObjectStoreEndpoint).
		Str("bucket", cfg.ObjectStoreBucket).
		Msg("Object store connection established")

	return &ObjectStore{client: client, bucket: cfg.ObjectStoreBucket, quality: cfg.ImageQuality}, nil
}

func (s *ObjectStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	location := fmt.Sprintf("s3://%s/%s", s.bucket, name)

	data, err := helpers.EncodeJPEG(img, s.quality)
	if err != nil {
		return location, &WriteError{Path: location, Err: err}
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return location, &WriteError{Path: location, Err: err}
	}
	return location, nil
}
