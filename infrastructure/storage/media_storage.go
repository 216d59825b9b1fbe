// Package storage handles the binary side of media: uploads and
// downloads go through presigned URLs so the bytes never pass through
// the API process.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Presign lifetimes. Uploads get longer because large originals on slow
// connections can outlive a short URL.
const (
	uploadURLTTL   = 30 * time.Minute
	downloadURLTTL = 15 * time.Minute
)

// MediaStorage wraps the object store for media binaries.
type MediaStorage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	logger  *zap.Logger
}

// NewMediaStorage creates a new MediaStorage
func NewMediaStorage(client *s3.Client, bucket string, logger *zap.Logger) *MediaStorage {
	return &MediaStorage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		logger:  logger,
	}
}

// Bucket returns the backing bucket name.
func (s *MediaStorage) Bucket() string { return s.bucket }

// PresignUpload returns a URL the caller can PUT the binary to.
func (s *MediaStorage) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	out, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(uploadURLTTL))
	if err != nil {
		s.logger.Error("presign upload failed", zap.String("key", key), zap.Error(err))
		return "", apperrors.NewStorageError("presign upload", err)
	}
	return out.URL, nil
}

// PresignDownload returns a URL the caller can GET the binary from.
func (s *MediaStorage) PresignDownload(ctx context.Context, key string) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(downloadURLTTL))
	if err != nil {
		s.logger.Error("presign download failed", zap.String("key", key), zap.Error(err))
		return "", apperrors.NewStorageError("presign download", err)
	}
	return out.URL, nil
}

// Put writes a small server-generated object, like a QR code image.
func (s *MediaStorage) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperrors.NewStorageError("put object", err)
	}
	return nil
}

// Copy duplicates an object within the bucket.
func (s *MediaStorage) Copy(ctx context.Context, sourceKey, destKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + sourceKey),
		Key:        aws.String(destKey),
	})
	if err != nil {
		return apperrors.NewStorageError("copy object", err)
	}
	return nil
}

// Delete removes one object. Missing keys are not an error.
func (s *MediaStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.NewStorageError("delete object", err)
	}
	return nil
}

// DeleteAll removes a batch of objects, continuing past individual
// failures and returning the first error seen.
func (s *MediaStorage) DeleteAll(ctx context.Context, keys []string) error {
	var firstErr error
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			s.logger.Warn("delete object failed", zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Object key builders. The layout groups originals by event so bulk
// cleanup can prefix-list an event's objects.

func PhotoKey(eventID, mediaID, version, ext string) string {
	return fmt.Sprintf("photos/%s/%s/%s%s", eventID, version, mediaID, ext)
}

func VideoKey(eventID, mediaID, version, ext string) string {
	return fmt.Sprintf("videos/%s/%s/%s%s", eventID, version, mediaID, ext)
}

func QRCodeKey(eventID, galleryCode string) string {
	return fmt.Sprintf("qr-codes/%s/qr_%s.png", eventID, galleryCode)
}

func WatermarkKey(userID, ext string) string {
	return fmt.Sprintf("watermarks/%s/custom_watermark%s", userID, ext)
}

func ProfilePhotoKey(userID, ext string) string {
	return fmt.Sprintf("profile-photos/%s%s", userID, ext)
}
