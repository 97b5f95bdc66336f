package files

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/models"
	"github.com/google/go-cmp/cmp"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const upsertRe = `(?s)^\s*INSERT\s+INTO\s+files\b.*ON\s+CONFLICT\s*\(file_id\)\s*DO\s+UPDATE\s+SET\b.*WHERE\s+files\.user_id\s*=\s*EXCLUDED\.user_id;?\s*$`

var uploadedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleFile() *models.FileRecord {
	return &models.FileRecord{
		FileID:       "f1",
		UserID:       "u1",
		FileName:     "a.txt",
		FileSize:     12,
		ContentType:  "text/plain",
		Extension:    "txt",
		ObjectKey:    "u1/f1_a.txt",
		EncryptedKey: []byte("ek"),
		UploadedAt:   uploadedAt,
	}
}

func TestPut_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := sampleFile()
	mock.ExpectExec(upsertRe).
		WithArgs("f1", "u1", "a.txt", int64(12), "text/plain", "txt", "u1/f1_a.txt", []byte("ek"), uploadedAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Put(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPut_OwnerConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertRe).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Put(context.Background(), sampleFile())
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestPut_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertRe).WillReturnError(errors.New("boom"))

	err := repo.Put(context.Background(), sampleFile())
	if !errors.Is(err, common.ErrStore) {
		t.Fatalf("want ErrStore, got %v", err)
	}
}

func TestPut_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertRe).WillReturnResult(sqlmock.NewErrorResult(errors.New("ra")))

	err := repo.Put(context.Background(), sampleFile())
	if !errors.Is(err, common.ErrStore) {
		t.Fatalf("want ErrStore, got %v", err)
	}
}

var fileColumns = []string{"file_id", "user_id", "file_name", "file_size", "content_type", "extension", "s3_key", "encrypted_key", "upload_date", "is_folder"}

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(fileColumns).
		AddRow("f1", "u1", "a.txt", int64(12), "text/plain", "txt", "u1/f1_a.txt", []byte("ek"), uploadedAt, false)
	mock.ExpectQuery(`(?s)^SELECT .* FROM files WHERE file_id = \$1$`).WithArgs("f1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(sampleFile(), got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM files WHERE file_id`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM files WHERE file_id`).WillReturnError(errors.New("down"))

	_, err := repo.Get(context.Background(), "f1")
	if !errors.Is(err, common.ErrStore) {
		t.Fatalf("want ErrStore, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		result  driver.Result
		execErr error
		wantErr error
	}{
		{"deleted", sqlmock.NewResult(0, 1), nil, nil},
		{"missing", sqlmock.NewResult(0, 0), nil, common.ErrorNotFound},
		{"exec error", nil, errors.New("down"), common.ErrStore},
		{"rows affected error", sqlmock.NewErrorResult(errors.New("ra")), nil, common.ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectExec(`^DELETE FROM files WHERE file_id = \$1$`).WithArgs("f1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.Delete(context.Background(), "f1")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListByOwner_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	later := uploadedAt.Add(time.Hour)
	rows := sqlmock.NewRows(fileColumns).
		AddRow("f2", "u1", "b.pdf", int64(5), "application/pdf", "pdf", "u1/f2_b.pdf", nil, later, false).
		AddRow("f1", "u1", "a.txt", int64(12), "text/plain", "txt", "u1/f1_a.txt", []byte("ek"), uploadedAt, false)
	mock.ExpectQuery(`(?s)FROM files WHERE user_id = \$1 ORDER BY upload_date DESC`).WithArgs("u1").WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].FileID != "f2" || got[1].FileID != "f1" {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if got[0].EncryptedKey != nil {
		t.Fatalf("expected nil encrypted key, got %v", got[0].EncryptedKey)
	}
}

func TestListByOwner_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM files WHERE user_id`).WithArgs("u9").WillReturnRows(sqlmock.NewRows(fileColumns))

	got, err := repo.ListByOwner(context.Background(), "u9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestListByOwner_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectQuery(`FROM files WHERE user_id`).WillReturnError(errors.New("down"))
		if _, err := repo.ListByOwner(context.Background(), "u1"); !errors.Is(err, common.ErrStore) {
			t.Fatalf("want ErrStore, got %v", err)
		}
	})

	t.Run("scan", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		rows := sqlmock.NewRows([]string{"file_id"}).AddRow("f1")
		mock.ExpectQuery(`FROM files WHERE user_id`).WillReturnRows(rows)
		if _, err := repo.ListByOwner(context.Background(), "u1"); !errors.Is(err, common.ErrStore) {
			t.Fatalf("want ErrStore, got %v", err)
		}
	})

	t.Run("rows", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		rows := sqlmock.NewRows(fileColumns).
			AddRow("f1", "u1", "a.txt", int64(12), "text/plain", "txt", "u1/f1_a.txt", nil, uploadedAt, false).
			RowError(0, errors.New("row"))
		mock.ExpectQuery(`FROM files WHERE user_id`).WillReturnRows(rows)
		if _, err := repo.ListByOwner(context.Background(), "u1"); !errors.Is(err, common.ErrStore) {
			t.Fatalf("want ErrStore, got %v", err)
		}
	})
}
