// Package services runs the client side of the secdrive flow: files are
// sealed locally under a broker-issued data key before they leave the
// machine, and opened locally after download.
package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/secdrive/internal/client/client"
	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/cryptox"
	"github.com/dmitrijs2005/secdrive/internal/filex"
	"github.com/dmitrijs2005/secdrive/internal/netx"
)

var ErrFileNotFound = errors.New("file not found")

// API is the part of *client.Client the file service needs.
type API interface {
	GenerateDataKey(ctx context.Context, userID string) (*client.DataKey, error)
	DecryptDataKey(ctx context.Context, userID string, encryptedKey []byte) (*client.DataKey, error)
	RequestUpload(ctx context.Context, userID, fileName string, size int64, contentType string) (*client.UploadSlot, error)
	ConfirmUpload(ctx context.Context, in client.ConfirmUpload) error
	DeleteFile(ctx context.Context, userID, fileID string) error
	ListFiles(ctx context.Context, userID string) ([]client.File, error)
}

type FileService struct {
	api    API
	http   *http.Client
	userID string
}

func NewFileService(api API, httpClient *http.Client, userID string) *FileService {
	return &FileService{api: api, http: httpClient, userID: userID}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return common.DefaultContentType
}

// Upload encrypts the file at path and stores it. It returns the new file id.
func (s *FileService) Upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	contentType := contentTypeFor(name)

	dk, err := s.api.GenerateDataKey(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("data key: %w", err)
	}
	blob, err := cryptox.EncryptBlob(data, dk.PlaintextKey)
	common.WipeByteArray(dk.PlaintextKey)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	slot, err := s.api.RequestUpload(ctx, s.userID, name, int64(len(data)), contentType)
	if err != nil {
		return "", fmt.Errorf("upload slot: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, s.http, slot.PresignedURL, blob, contentType); err != nil {
		return "", err
	}

	err = s.api.ConfirmUpload(ctx, client.ConfirmUpload{
		FileID:       slot.FileID,
		UserID:       s.userID,
		FileName:     name,
		FileSize:     int64(len(data)),
		ObjectKey:    slot.ObjectKey,
		ContentType:  contentType,
		EncryptedKey: dk.EncryptedKey,
	})
	if err != nil {
		return "", fmt.Errorf("confirm: %w", err)
	}

	return slot.FileID, nil
}

// Download fetches fileID, decrypts it and writes it into dir under its
// stored name. It returns the written path.
func (s *FileService) Download(ctx context.Context, fileID, dir string) (string, error) {
	f, err := s.find(ctx, fileID)
	if err != nil {
		return "", err
	}
	if f.URL == "" {
		return "", fmt.Errorf("no download url for %s", fileID)
	}

	blob, err := netx.DownloadFromPresignedURL(ctx, s.http, f.URL)
	if err != nil {
		return "", err
	}

	dk, err := s.api.DecryptDataKey(ctx, s.userID, f.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("data key: %w", err)
	}
	plain, err := cryptox.DecryptBlob(blob, dk.PlaintextKey)
	common.WipeByteArray(dk.PlaintextKey)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", fileID, err)
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	target := filepath.Join(abs, filepath.Base(f.Name))
	if err := filex.WriteFileAtomic(target, plain, 0o600); err != nil {
		return "", err
	}
	return target, nil
}

func (s *FileService) find(ctx context.Context, fileID string) (*client.File, error) {
	files, err := s.api.ListFiles(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].ID == fileID {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

func (s *FileService) List(ctx context.Context) ([]client.File, error) {
	return s.api.ListFiles(ctx, s.userID)
}

func (s *FileService) Delete(ctx context.Context, fileID string) error {
	return s.api.DeleteFile(ctx, s.userID, fileID)
}
