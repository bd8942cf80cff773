package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	minioLib "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects implements objectAPI in memory.
type fakeObjects struct {
	bucketExists    bool
	bucketExistsErr error
	madeBucket      string
	makeBucketErr   error

	putKey         string
	putSize        int64
	putContentType string
	putErr         error

	objects map[string][]byte
	getErr  error

	statErr error
}

func (f *fakeObjects) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minioLib.MakeBucketOptions) error {
	f.madeBucket = bucket
	return f.makeBucketErr
}

func (f *fakeObjects) PutObject(_ context.Context, _ string, key string, reader io.Reader, size int64, opts minioLib.PutObjectOptions) (minioLib.UploadInfo, error) {
	if f.putErr != nil {
		return minioLib.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	f.putKey, f.putSize, f.putContentType = key, size, opts.ContentType
	return minioLib.UploadInfo{Key: key, Size: size}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, _ string, key string, _ minioLib.GetObjectOptions) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func (f *fakeObjects) StatObject(_ context.Context, _ string, key string, _ minioLib.StatObjectOptions) (minioLib.ObjectInfo, error) {
	if f.statErr != nil {
		return minioLib.ObjectInfo{}, f.statErr
	}
	if _, ok := f.objects[key]; !ok {
		return minioLib.ObjectInfo{}, minioLib.ErrorResponse{Code: "NoSuchKey"}
	}
	return minioLib.ObjectInfo{Key: key}, nil
}

func TestNewClientWithAPI(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		api        *fakeObjects
		wantErr    string
		wantCreate bool
	}{
		{name: "bucket exists", api: &fakeObjects{bucketExists: true}},
		{name: "bucket created", api: &fakeObjects{}, wantCreate: true},
		{name: "exists check fails", api: &fakeObjects{bucketExistsErr: errors.New("boom")}, wantErr: "failed to check bucket existence"},
		{name: "create fails", api: &fakeObjects{makeBucketErr: errors.New("fail")}, wantErr: "failed to create bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClientWithAPI(ctx, tt.api, "exports")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, c)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "exports", c.bucket)
			if tt.wantCreate {
				assert.Equal(t, "exports", tt.api.madeBucket)
			}
		})
	}
}

func TestClient_UploadDownloadExists(t *testing.T) {
	ctx := context.Background()
	api := &fakeObjects{bucketExists: true}
	c, err := NewClientWithAPI(ctx, api, "exports")
	require.NoError(t, err)

	exists, err := c.Exists(ctx, "exports/u/a.html")
	require.NoError(t, err)
	assert.False(t, exists)

	body := "<DL><p></DL><p>"
	require.NoError(t, c.Upload(ctx, "exports/u/a.html", bytes.NewBufferString(body), int64(len(body)), "text/html"))
	assert.Equal(t, int64(len(body)), api.putSize)
	assert.Equal(t, "text/html", api.putContentType)

	exists, err = c.Exists(ctx, "exports/u/a.html")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := c.Download(ctx, "exports/u/a.html")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, body, string(got))
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	api := &fakeObjects{bucketExists: true, putErr: errors.New("put"), getErr: errors.New("get"), statErr: errors.New("stat")}
	c, err := NewClientWithAPI(ctx, api, "exports")
	require.NoError(t, err)

	assert.ErrorContains(t, c.Upload(ctx, "k", bytes.NewBufferString("x"), 1, "text/html"), "failed to upload object")

	_, err = c.Download(ctx, "k")
	assert.ErrorContains(t, err, "failed to get object")

	_, err = c.Exists(ctx, "k")
	assert.ErrorContains(t, err, "failed to stat object")
}
