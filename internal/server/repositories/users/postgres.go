package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/dbx"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.UserProfile) error {

	query :=
		`INSERT INTO users (user_id, email, first_name, last_name, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.UserID, user.Email, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}
	if n == 0 {
		return common.ErrAlreadyExists
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	query :=
		`SELECT user_id, email, first_name, last_name, created_at, updated_at FROM users
		 WHERE user_id = $1
		 `

	u := &models.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&u.UserID, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}

	return u, nil
}

// Update leaves a column unchanged when its parameter is NULL.
func (r *PostgresRepository) Update(ctx context.Context, userID string, upd models.ProfileUpdate) error {
	query :=
		`UPDATE users SET
			email = COALESCE($2, email),
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			updated_at = now()
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID,
		nullString(upd.Email), nullString(upd.FirstName), nullString(upd.LastName))
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrStore, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
