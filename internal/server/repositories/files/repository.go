// Package files is the FileRecord half of the metadata store. All backends
// return common.ErrorNotFound for missing records and wrap backend failures
// with common.ErrStore.
package files

import (
	"context"

	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

type Repository interface {
	// Put creates the record or fully replaces an existing one with the same
	// FileID. Replacing a record owned by another user fails with
	// common.ErrForbidden and changes nothing.
	Put(ctx context.Context, file *models.FileRecord) error
	Get(ctx context.Context, fileID string) (*models.FileRecord, error)
	// Delete removes the record; a missing record yields common.ErrorNotFound
	// so a second concurrent delete is reported, not crashed on.
	Delete(ctx context.Context, fileID string) error
	ListByOwner(ctx context.Context, userID string) ([]*models.FileRecord, error)
}
