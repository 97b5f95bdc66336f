package objects

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/logging"
)

const bucket = "secdrive-user-files"

func realClients(t *testing.T) (*s3.Client, *s3.PresignClient) {
	t.Helper()
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("minioadmin", "minioadmin", ""),
	}
	return NewS3Clients(cfg, "http://127.0.0.1:9000", true)
}

func newTestService(client S3API, presigner Presigner) *Service {
	s := NewService(client, presigner, Options{Bucket: bucket, Expiry: time.Hour, Timeout: time.Second}, logging.Discard())
	s.newID = func() string { return "f1" }
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestIssueUploadSlot_PresignsDerivedKey(t *testing.T) {
	client, presigner := realClients(t)
	s := newTestService(client, presigner)

	slot, err := s.IssueUploadSlot(context.Background(), "u1", "a.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "f1", slot.FileID)
	assert.Equal(t, "u1/f1_a.txt", slot.ObjectKey)
	assert.Equal(t, bucket, slot.Bucket)
	assert.Equal(t, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), slot.ExpiresAt)

	u, err := url.Parse(slot.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/"+bucket+"/u1/f1_a.txt", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestIssueUploadSlot_UniqueIDs(t *testing.T) {
	client, presigner := realClients(t)
	s := NewService(client, presigner, Options{Bucket: bucket, Expiry: time.Hour}, logging.Discard())

	a, err := s.IssueUploadSlot(context.Background(), "u1", "a.txt", "")
	require.NoError(t, err)
	b, err := s.IssueUploadSlot(context.Background(), "u1", "a.txt", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.FileID, b.FileID)
	assert.NotEqual(t, a.ObjectKey, b.ObjectKey)
	assert.True(t, strings.HasPrefix(a.ObjectKey, "u1/"))
}

func TestIssueUploadSlot_Validation(t *testing.T) {
	client, presigner := realClients(t)
	s := newTestService(client, presigner)

	for _, tc := range []struct{ user, name string }{
		{"", "a.txt"},
		{"u1", ""},
		{"u1", "."},
		{"u1", ".."},
		{"u1", "../u2/x"},
		{"u1", `dir\file`},
		{"a/b", "x"},
		{`a\b`, "x"},
		{"..", "x"},
	} {
		_, err := s.IssueUploadSlot(context.Background(), tc.user, tc.name, "")
		assert.ErrorIs(t, err, common.ErrValidation, "user=%q name=%q", tc.user, tc.name)
	}
}

type fakePresigner struct {
	err        error
	putIn      *s3.PutObjectInput
	getIn      *s3.GetObjectInput
	putOptions s3.PresignOptions
}

func (f *fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putIn = in
	for _, fn := range optFns {
		fn(&f.putOptions)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://put/" + aws.ToString(in.Key)}, nil
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://get/" + aws.ToString(in.Key)}, nil
}

func TestIssueUploadSlot_DefaultsContentTypeAndExpiry(t *testing.T) {
	p := &fakePresigner{}
	s := newTestService(nil, p)

	_, err := s.IssueUploadSlot(context.Background(), "u1", "a.bin", "")
	require.NoError(t, err)
	assert.Equal(t, common.DefaultContentType, aws.ToString(p.putIn.ContentType))
	assert.Equal(t, bucket, aws.ToString(p.putIn.Bucket))
	assert.Equal(t, time.Hour, p.putOptions.Expires)
}

func TestPresignErrors(t *testing.T) {
	p := &fakePresigner{err: errors.New("no credentials")}
	s := newTestService(nil, p)

	_, err := s.IssueUploadSlot(context.Background(), "u1", "a.txt", "")
	assert.ErrorIs(t, err, common.ErrObjectStore)

	_, err = s.IssueDownloadSlot(context.Background(), "u1/f1_a.txt")
	assert.ErrorIs(t, err, common.ErrObjectStore)
}

func TestIssueDownloadSlot(t *testing.T) {
	p := &fakePresigner{}
	s := newTestService(nil, p)

	got, err := s.IssueDownloadSlot(context.Background(), "u1/f1_a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://get/u1/f1_a.txt", got)
	assert.Equal(t, bucket, aws.ToString(p.getIn.Bucket))
}

type fakeS3 struct {
	deleteErr error
	deleted   []string
	headOut   *s3.HeadObjectOutput
	headErr   error
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return f.headOut, f.headErr
}

func TestDeleteObject(t *testing.T) {
	f := &fakeS3{}
	s := newTestService(f, nil)

	require.NoError(t, s.DeleteObject(context.Background(), "u1/f1_a.txt"))
	assert.Equal(t, []string{"u1/f1_a.txt"}, f.deleted)

	f.deleteErr = errors.New("AccessDenied")
	assert.ErrorIs(t, s.DeleteObject(context.Background(), "u1/f1_a.txt"), common.ErrObjectStore)
}

func TestStatObject(t *testing.T) {
	f := &fakeS3{headOut: &s3.HeadObjectOutput{ContentLength: aws.Int64(10)}}
	s := newTestService(f, nil)

	n, err := s.StatObject(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	f.headErr = &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	_, err = s.StatObject(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.headErr = &smithy.GenericAPIError{Code: "Forbidden"}
	_, err = s.StatObject(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrObjectStore)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "u1/f1_a.txt", ObjectKey("u1", "f1", "a.txt"))
	assert.Equal(t, "u1/", OwnerPrefix("u1"))
	assert.NoError(t, ValidateFileName("archive.tar.gz"))
	assert.NoError(t, ValidateUserID("u1"))

	assert.True(t, OwnsKey("u1", "u1/f1_a.txt"))
	assert.False(t, OwnsKey("u1", "u2/f1_a.txt"))
	assert.False(t, OwnsKey("a", "a/b/f1_x"))
	assert.False(t, OwnsKey("u1", "u1/"))
	assert.False(t, OwnsKey("u1", "u1"))
}
