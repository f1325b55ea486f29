package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = fmt.Errorf("object not found")

type Service struct {
	Client      *minio.Client
	Bucket      string
	Region      string
	StorageType string
}

func createMinIOClient(cfg *config.Config) (*minio.Client, error) {
	return minio.New(cfg.BucketEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BucketAccessID, cfg.BucketAccessKey, ""),
		Secure: cfg.UseSSL,
	})
}

func createS3Client(cfg *config.Config) (*minio.Client, error) {
	return minio.New("s3.amazonaws.com", &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.BucketAccessID, cfg.BucketAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.BucketRegion,
	})
}

func InitStorageService(ctx context.Context, cfg *config.Config) (*Service, error) {
	var client *minio.Client
	var err error
	switch cfg.StorageType {
	case "minio":
		client, err = createMinIOClient(cfg)
	case "s3":
		client, err = createS3Client(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
	if err != nil {
		logging.Logger.Error("create bucket client failed", "type", cfg.StorageType, "error", err)
		return nil, err
	}

	ss := &Service{
		Client:      client,
		Bucket:      cfg.BucketName,
		Region:      cfg.BucketRegion,
		StorageType: cfg.StorageType,
	}
	if err := ss.EnsureBucketExists(ctx); err != nil {
		return nil, err
	}
	logging.Logger.Info("storage service initialized",
		"type", cfg.StorageType,
		"bucket", cfg.BucketName,
		"region", cfg.BucketRegion,
	)
	return ss, nil
}

func (ss *Service) EnsureBucketExists(ctx context.Context) error {
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		logging.Logger.Error("bucket lookup failed", "bucket", ss.Bucket, "error", err)
		return err
	}
	if exists {
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{Region: ss.Region})
	if err != nil {
		if ss.StorageType == "s3" {
			logging.Logger.Warn("could not create S3 bucket (might exist or no permission)",
				"bucket", ss.Bucket, "error", err)
			return nil
		}
		logging.Logger.Error("create bucket failed", "bucket", ss.Bucket, "error", err)
		return err
	}
	logging.Logger.Info("bucket created", "bucket", ss.Bucket)
	return nil
}

func (ss *Service) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := ss.Client.PutObject(ctx, ss.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (ss *Service) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := ss.Client.GetObject(ctx, ss.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (ss *Service) PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("presign %s: non-positive ttl %s", key, ttl)
	}
	u, err := ss.Client.PresignedGetObject(ctx, ss.Bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (ss *Service) FileExists(ctx context.Context, key string) (bool, error) {
	_, err := ss.Client.StatObject(ctx, ss.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
