package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	apperrors "legal-analyzer/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "lease.pdf", "documents/doc-1/lease.pdf"},
		{"unix path", "/tmp/uploads/lease.pdf", "documents/doc-1/lease.pdf"},
		{"windows path", `C:\Users\me\lease.txt`, "documents/doc-1/lease.txt"},
		{"empty", "", "documents/doc-1/upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key("doc-1", tt.filename))
		})
	}
}

func TestBlobStore_RoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := NewBlobStore(fake, "legal-docs")
	ctx := context.Background()

	key, err := store.Put(ctx, "doc-1", "lease.txt", []byte("The tenant shall pay rent."))
	require.NoError(t, err)
	assert.Equal(t, "documents/doc-1/lease.txt", key)
	assert.Equal(t, "text/plain; charset=utf-8", fake.types[key])

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "The tenant shall pay rent.", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBlobStorageFailed))
}

func TestBlobStore_PutFailure(t *testing.T) {
	fake := newFakeS3()
	fake.err = errors.New("AccessDenied")

	_, err := NewBlobStore(fake, "legal-docs").Put(context.Background(), "doc-1", "lease.pdf", []byte("x"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBlobStorageFailed))
}
