// Package repomanager selects the metadata store backend and vends its
// repositories.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/secdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/users"
)

type RepositoryManager interface {
	// RunMigrations brings the backend schema up to date. Backends without a
	// schema treat it as a no-op.
	RunMigrations(ctx context.Context) error
	// Ping reports whether the backend is reachable; used by the readiness check.
	Ping(ctx context.Context) error
	Files() files.Repository
	Users() users.Repository
}
