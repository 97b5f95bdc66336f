// Package objects hands out presigned upload and download locations for the
// encrypted file blobs and performs the few direct bucket operations the
// coordinator needs.
package objects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

// S3API is the part of *s3.Client used directly.
type S3API interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Presigner is the part of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Options struct {
	Bucket string
	// Expiry is the lifetime of every presigned URL.
	Expiry time.Duration
	// Timeout bounds each direct bucket call.
	Timeout time.Duration
}

type Service struct {
	client    S3API
	presigner Presigner
	opts      Options
	log       logging.Logger

	newID func() string
	now   func() time.Time
}

func NewService(client S3API, presigner Presigner, opts Options, log logging.Logger) *Service {
	return &Service{
		client:    client,
		presigner: presigner,
		opts:      opts,
		log:       log.With("module", "objects"),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Bucket returns the bucket all keys live in.
func (s *Service) Bucket() string {
	return s.opts.Bucket
}

// ObjectKey derives the key for a file. Keys are namespaced by owner so the
// prefix alone identifies whose object it is.
func ObjectKey(userID, fileID, fileName string) string {
	return userID + "/" + fileID + "_" + fileName
}

// OwnerPrefix is the key prefix every object of userID starts with.
func OwnerPrefix(userID string) string {
	return userID + "/"
}

// OwnsKey reports whether key sits directly under userID's prefix. Nested
// keys such as "a/b/x" belong to no one.
func OwnsKey(userID, key string) bool {
	rest, ok := strings.CutPrefix(key, OwnerPrefix(userID))
	return ok && rest != "" && !strings.ContainsAny(rest, `/\`)
}

// ValidateUserID rejects ids that would nest inside another owner's prefix.
func ValidateUserID(userID string) error {
	switch {
	case userID == "":
		return fmt.Errorf("%w: user_id is required", common.ErrValidation)
	case userID == "." || userID == "..":
		return fmt.Errorf("%w: invalid user_id %q", common.ErrValidation, userID)
	case strings.ContainsAny(userID, `/\`):
		return fmt.Errorf("%w: user_id must not contain path separators", common.ErrValidation)
	}
	return nil
}

// ValidateFileName rejects names that would escape the owner's prefix.
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: file_name is required", common.ErrValidation)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid file_name %q", common.ErrValidation, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: file_name must not contain path separators", common.ErrValidation)
	}
	return nil
}

// IssueUploadSlot allocates a new file id and returns a presigned PUT for its
// key. Nothing is persisted; an unused slot simply expires.
func (s *Service) IssueUploadSlot(ctx context.Context, userID, fileName, contentType string) (*models.UploadSlot, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = common.DefaultContentType
	}

	fileID := s.newID()
	key := ObjectKey(userID, fileID, fileName)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.opts.Expiry))
	if err != nil {
		s.log.Error(ctx, "presign put failed", "object_key", key, "error", err)
		return nil, fmt.Errorf("%w: presign put: %w", common.ErrObjectStore, err)
	}

	return &models.UploadSlot{
		URL:       req.URL,
		FileID:    fileID,
		ObjectKey: key,
		Bucket:    s.opts.Bucket,
		ExpiresAt: s.now().UTC().Add(s.opts.Expiry),
	}, nil
}

// IssueDownloadSlot returns a presigned GET for objectKey.
func (s *Service) IssueDownloadSlot(ctx context.Context, objectKey string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.opts.Expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presign get: %w", common.ErrObjectStore, err)
	}
	return req.URL, nil
}

// DeleteObject removes objectKey from the bucket. S3 reports success for
// keys that do not exist.
func (s *Service) DeleteObject(ctx context.Context, objectKey string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object: %w", common.ErrObjectStore, err)
	}
	return nil
}

// StatObject returns the stored size of objectKey.
func (s *Service) StatObject(ctx context.Context, objectKey string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("%w: head object: %w", common.ErrObjectStore, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
