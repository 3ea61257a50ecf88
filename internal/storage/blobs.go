// internal/storage/blobs.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"legal-analyzer/internal/common/aws"
	apperrors "legal-analyzer/internal/common/errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore keeps the uploaded original of each document in S3.
type BlobStore struct {
	client aws.S3API
	bucket string
}

func NewBlobStore(client aws.S3API, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

// Key returns the object key for an upload: documents/{id}/{base name}.
func Key(documentID, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("documents/%s/%s", documentID, base)
}

// Put uploads body and returns the object key.
func (b *BlobStore) Put(ctx context.Context, documentID, filename string, body []byte) (string, error) {
	key := Key(documentID, filename)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        awssdk.String(b.bucket),
		Key:           awssdk.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   awssdk.String(aws.ContentType(filename)),
		ContentLength: awssdk.Int64(int64(len(body))),
		Metadata: map[string]string{
			"document-id": documentID,
		},
	})
	if err != nil {
		return "", apperrors.NewBlobStorageFailedError("put", err)
	}
	return key, nil
}

// Get downloads the object stored under key.
func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(b.bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, apperrors.NewBlobStorageFailedError("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.NewBlobStorageFailedError("get", err)
	}
	return data, nil
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: awssdk.String(b.bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return apperrors.NewBlobStorageFailedError("delete", err)
	}
	return nil
}
