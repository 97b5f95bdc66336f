package repomanager

import (
	"context"

	"github.com/dmitrijs2005/secdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process memory. The same
// repository instances are returned on every call so state is shared.
type InMemoryRepositoryManager struct {
	files *files.MemoryRepository
	users *users.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		files: files.NewMemoryRepository(),
		users: users.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) Files() files.Repository { return m.files }

func (m *InMemoryRepositoryManager) Users() users.Repository { return m.users }

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Ping(context.Context) error { return nil }
