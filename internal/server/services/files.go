package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/cryptox"
	"github.com/dmitrijs2005/secdrive/internal/logging"
	"github.com/dmitrijs2005/secdrive/internal/server/config"
	"github.com/dmitrijs2005/secdrive/internal/server/metrics"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
	"github.com/dmitrijs2005/secdrive/internal/server/objects"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/repomanager"
)

// ObjectStore is implemented by *objects.Service.
type ObjectStore interface {
	IssueUploadSlot(ctx context.Context, userID, fileName, contentType string) (*models.UploadSlot, error)
	IssueDownloadSlot(ctx context.Context, objectKey string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	StatObject(ctx context.Context, objectKey string) (int64, error)
}

// ConfirmRequest is the client's claim that an upload finished. FileSize is
// a pointer so that a missing size can be told apart from an empty file.
type ConfirmRequest struct {
	FileID       string
	UserID       string
	FileName     string
	FileSize     *int64
	ObjectKey    string
	ContentType  string
	EncryptedKey []byte
}

// DeleteResult identifies what was removed.
type DeleteResult struct {
	FileID    string
	ObjectKey string
	FileName  string
}

// FileListing is one row of a user's file list.
type FileListing struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         string `json:"size"`
	SizeBytes    int64  `json:"size_bytes"`
	Modified     string `json:"modified"`
	UploadDate   string `json:"upload_date"`
	URL          *string `json:"url"`
	IsFolder     bool   `json:"isFolder"`
	EncryptedKey []byte `json:"encrypted_key,omitempty"`
}

// FileService keeps the metadata store consistent with the object store.
// A record is written only when the client confirms an upload, and on delete
// the record is authoritative: a failed object removal leaves an orphaned
// object rather than a dangling record.
type FileService struct {
	repomanager   repomanager.RepositoryManager
	objects       ObjectStore
	storeTimeout  time.Duration
	verifyUploads bool
	log           logging.Logger

	now func() time.Time
}

func NewFileService(m repomanager.RepositoryManager, objs ObjectStore, cfg *config.Config, log logging.Logger) *FileService {
	return &FileService{
		repomanager:   m,
		objects:       objs,
		storeTimeout:  cfg.StoreTimeout,
		verifyUploads: cfg.VerifyUploads,
		log:           log.With("module", "files"),
		now:           time.Now,
	}
}

// Extension returns the text after the last dot of name, or "" when there
// is none.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// RequestUpload issues an upload slot for a new file.
func (s *FileService) RequestUpload(ctx context.Context, userID, fileName, contentType string) (*models.UploadSlot, error) {
	if err := objects.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if fileName == "" {
		return nil, fmt.Errorf("%w: file_name is required", common.ErrValidation)
	}
	slot, err := s.objects.IssueUploadSlot(ctx, userID, fileName, contentType)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "upload slot issued", "user_id", userID, "file_id", slot.FileID, "object_key", slot.ObjectKey)
	return slot, nil
}

func validateConfirm(req ConfirmRequest) error {
	var missing []string
	if req.FileID == "" {
		missing = append(missing, "file_id")
	}
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	if req.FileName == "" {
		missing = append(missing, "file_name")
	}
	if req.FileSize == nil {
		missing = append(missing, "file_size")
	}
	if req.ObjectKey == "" {
		missing = append(missing, "s3_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	if *req.FileSize < 0 {
		return fmt.Errorf("%w: file_size must not be negative", common.ErrValidation)
	}
	return nil
}

// Confirm records a completed upload and returns its file id. Confirming the
// same file id again replaces the record, so a retried confirm is harmless.
func (s *FileService) Confirm(ctx context.Context, req ConfirmRequest) (string, error) {
	if err := validateConfirm(req); err != nil {
		return "", err
	}
	if err := objects.ValidateUserID(req.UserID); err != nil {
		return "", err
	}
	if !objects.OwnsKey(req.UserID, req.ObjectKey) {
		return "", fmt.Errorf("%w: object key is outside the caller's namespace", common.ErrForbidden)
	}

	repo := s.repomanager.Files()

	existing, err := s.getFile(ctx, req.FileID)
	switch {
	case err == nil:
		if existing.UserID != req.UserID {
			return "", fmt.Errorf("%w: file belongs to another user", common.ErrForbidden)
		}
	case !errors.Is(err, common.ErrorNotFound):
		return "", err
	}

	if s.verifyUploads {
		if err := s.verify(ctx, req); err != nil {
			return "", err
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = common.DefaultContentType
	}

	rec := &models.FileRecord{
		FileID:       req.FileID,
		UserID:       req.UserID,
		FileName:     req.FileName,
		FileSize:     *req.FileSize,
		ContentType:  contentType,
		Extension:    Extension(req.FileName),
		ObjectKey:    req.ObjectKey,
		EncryptedKey: req.EncryptedKey,
		UploadedAt:   s.now().UTC(),
	}

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := repo.Put(sctx, rec); err != nil {
		s.log.Error(ctx, "confirm failed", "file_id", req.FileID, "user_id", req.UserID, "error", err)
		return "", err
	}

	s.log.Info(ctx, "upload confirmed", "file_id", rec.FileID, "user_id", rec.UserID, "size", rec.FileSize)
	return rec.FileID, nil
}

func (s *FileService) verify(ctx context.Context, req ConfirmRequest) error {
	size, err := s.objects.StatObject(ctx, req.ObjectKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: object not uploaded", common.ErrValidation)
		}
		return err
	}
	// Clients may report either the plaintext or the sealed size.
	if size != *req.FileSize && size != *req.FileSize+cryptox.Overhead {
		return fmt.Errorf("%w: file_size %d does not match stored size %d", common.ErrValidation, *req.FileSize, size)
	}
	return nil
}

func (s *FileService) getFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repomanager.Files().Get(ctx, fileID)
}

// Delete removes a file owned by userID. The object is removed first on a
// best-effort basis; its failure is logged and counted but does not stop
// the record from being deleted.
func (s *FileService) Delete(ctx context.Context, fileID, userID string) (*DeleteResult, error) {
	if fileID == "" || userID == "" {
		return nil, fmt.Errorf("%w: file_id and user_id are required", common.ErrValidation)
	}

	rec, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		s.log.Warn(ctx, "delete refused", "file_id", fileID, "user_id", userID)
		return nil, fmt.Errorf("%w: file does not belong to user", common.ErrForbidden)
	}

	objectErr := s.objects.DeleteObject(ctx, rec.ObjectKey)
	if objectErr != nil {
		metrics.OrphanedObjects.WithLabelValues(metrics.ReasonDeleteFailed).Inc()
		s.log.Warn(ctx, "object delete failed, object orphaned",
			"file_id", fileID, "object_key", rec.ObjectKey, "error", objectErr)
	}

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repomanager.Files().Delete(sctx, fileID); err != nil {
		if objectErr == nil && !errors.Is(err, common.ErrorNotFound) {
			metrics.OrphanedMetadata.Inc()
		}
		s.log.Error(ctx, "metadata delete failed", "file_id", fileID, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "file deleted", "file_id", fileID, "user_id", userID)
	return &DeleteResult{FileID: rec.FileID, ObjectKey: rec.ObjectKey, FileName: rec.FileName}, nil
}

// List returns userID's files, each with a fresh download URL. A URL that
// cannot be minted is left empty; the listing itself still succeeds.
func (s *FileService) List(ctx context.Context, userID string) ([]FileListing, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	recs, err := s.repomanager.Files().ListByOwner(sctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UploadedAt.After(recs[j].UploadedAt)
	})

	result := make([]FileListing, 0, len(recs))
	for _, r := range recs {
		var url *string
		if u, err := s.objects.IssueDownloadSlot(ctx, r.ObjectKey); err != nil {
			s.log.Warn(ctx, "download url unavailable", "file_id", r.FileID, "error", err)
		} else {
			url = &u
		}
		result = append(result, FileListing{
			ID:           r.FileID,
			Name:         r.FileName,
			Type:         r.Extension,
			Size:         humanize.Bytes(uint64(r.FileSize)),
			SizeBytes:    r.FileSize,
			Modified:     humanize.RelTime(r.UploadedAt, s.now(), "ago", "from now"),
			UploadDate:   r.UploadedAt.UTC().Format(time.RFC3339),
			URL:          url,
			IsFolder:     r.IsFolder,
			EncryptedKey: r.EncryptedKey,
		})
	}
	return result, nil
}
