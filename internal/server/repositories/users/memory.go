package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]models.UserProfile
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]models.UserProfile), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserID]; ok {
		return common.ErrAlreadyExists
	}
	r.users[user.UserID] = *user
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Update(_ context.Context, userID string, upd models.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	upd.Apply(&u)
	u.UpdatedAt = r.now().UTC()
	r.users[userID] = u
	return nil
}
