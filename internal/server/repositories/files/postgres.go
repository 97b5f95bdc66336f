package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/dbx"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put upserts a file record by file_id. The conflict branch only fires for
// the same owner, so zero affected rows means the id belongs to someone else.
func (r *PostgresRepository) Put(ctx context.Context, file *models.FileRecord) error {
	query := `
		INSERT INTO files (file_id, user_id, file_name, file_size, content_type, extension, s3_key, encrypted_key, upload_date, is_folder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (file_id)
		DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			content_type = EXCLUDED.content_type,
			extension = EXCLUDED.extension,
			s3_key = EXCLUDED.s3_key,
			encrypted_key = EXCLUDED.encrypted_key,
			upload_date = EXCLUDED.upload_date,
			is_folder = EXCLUDED.is_folder
			WHERE files.user_id = EXCLUDED.user_id;
	`
	res, err := r.db.ExecContext(ctx, query,
		file.FileID, file.UserID, file.FileName, file.FileSize, file.ContentType, file.Extension,
		file.ObjectKey, file.EncryptedKey, file.UploadedAt, file.IsFolder)
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected error: %w", common.ErrStore, err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrForbidden
	default:
		return fmt.Errorf("%w: unexpected rows affected: %d", common.ErrStore, n)
	}
}

const selectFileColumns = `SELECT file_id, user_id, file_name, file_size, content_type, extension, s3_key, encrypted_key, upload_date, is_folder FROM files`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.FileRecord, error) {
	var f models.FileRecord
	err := s.Scan(&f.FileID, &f.UserID, &f.FileName, &f.FileSize, &f.ContentType, &f.Extension,
		&f.ObjectKey, &f.EncryptedKey, &f.UploadedAt, &f.IsFolder)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Get returns the record for fileID.
func (r *PostgresRepository) Get(ctx context.Context, fileID string) (*models.FileRecord, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, selectFileColumns+` WHERE file_id = $1`, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: failed to select file: %w", common.ErrStore, err)
	}
	return f, nil
}

// Delete removes the record for fileID.
func (r *PostgresRepository) Delete(ctx context.Context, fileID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete file: %w", common.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %w", common.ErrStore, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ListByOwner returns userID's files, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectFileColumns+` WHERE user_id = $1 ORDER BY upload_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select files: %w", common.ErrStore, err)
	}
	defer rows.Close()

	result := []*models.FileRecord{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStore, err)
	}
	return result, nil
}
