package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeObjectNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid object request")
)

// ObjectMetadata describes one stored object.
type ObjectMetadata struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ObjectRepository stores byte blobs under keys in the client's bucket.
type ObjectRepository struct {
	client *MinIOClient
	logger logging.Logger
}

func NewObjectRepository(client *MinIOClient, log logging.Logger) *ObjectRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ObjectRepository{client: client, logger: log}
}

func (r *ObjectRepository) Upload(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (*ObjectMetadata, error) {
	if key == "" {
		return nil, ErrInvalidRequest.WithDetail("key is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := r.client.api.PutObject(ctx, r.client.Bucket(), key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "upload failed")
	}
	r.logger.Debug("uploaded object", logging.String("key", key), logging.Int64("size", info.Size))
	return &ObjectMetadata{Key: key, Size: info.Size, ContentType: contentType, ETag: info.ETag, LastModified: info.LastModified, Metadata: meta}, nil
}

func (r *ObjectRepository) Download(ctx context.Context, key string) ([]byte, error) {
	if _, err := r.Stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := r.client.api.GetObject(ctx, r.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "download failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "download failed")
	}
	return data, nil
}

func (r *ObjectRepository) Stat(ctx context.Context, key string) (*ObjectMetadata, error) {
	info, err := r.client.api.StatObject(ctx, r.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail("key=" + key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "stat failed")
	}
	return &ObjectMetadata{
		Key: key, Size: info.Size, ContentType: info.ContentType, ETag: info.ETag,
		LastModified: info.LastModified, Metadata: info.UserMetadata,
	}, nil
}

func (r *ObjectRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.Stat(ctx, key)
	if errors.IsCode(err, errors.ErrCodeObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *ObjectRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.api.RemoveObject(ctx, r.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete failed")
	}
	return nil
}

// List returns up to limit objects under prefix, in key order.
func (r *ObjectRepository) List(ctx context.Context, prefix string, limit int) ([]*ObjectMetadata, error) {
	if limit <= 0 {
		limit = 1000
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []*ObjectMetadata
	for obj := range r.client.api.ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "list failed")
		}
		out = append(out, &ObjectMetadata{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, LastModified: obj.LastModified})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
