package aws

import (
	"bytes"
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore uploads documents to one bucket and hands out time-limited
// download links for them.
type ObjectStore struct {
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	linkTTL   time.Duration
}

// NewObjectStore creates an ObjectStore. Path-style addressing is forced when
// a custom endpoint is configured.
func NewObjectStore(cfg sdkaws.Config, bucket string, linkTTL time.Duration) *ObjectStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
	return &ObjectStore{
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		linkTTL:   linkTTL,
	}
}

// Put stores body under key.
func (o *ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := o.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(o.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a GET URL for key valid for the configured link TTL.
func (o *ObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	presigned, err := o.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(o.bucket),
		Key:    sdkaws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = o.linkTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return presigned.URL, nil
}
