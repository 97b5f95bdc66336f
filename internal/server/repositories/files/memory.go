package files

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

// MemoryRepository keeps records in process memory. Used by the memory store
// backend and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	files map[string]models.FileRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string]models.FileRecord)}
}

func (r *MemoryRepository) Put(_ context.Context, file *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.files[file.FileID]; ok && old.UserID != file.UserID {
		return common.ErrForbidden
	}
	r.files[file.FileID] = clone(*file)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, fileID string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[fileID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f = clone(f)
	return &f, nil
}

func (r *MemoryRepository) Delete(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[fileID]; !ok {
		return common.ErrorNotFound
	}
	delete(r.files, fileID)
	return nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, userID string) ([]*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*models.FileRecord{}
	for _, f := range r.files {
		if f.UserID == userID {
			f = clone(f)
			result = append(result, &f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

func clone(f models.FileRecord) models.FileRecord {
	if f.EncryptedKey != nil {
		f.EncryptedKey = append([]byte(nil), f.EncryptedKey...)
	}
	return f
}
