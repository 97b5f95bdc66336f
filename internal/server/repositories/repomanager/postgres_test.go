package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/secdrive/internal/common"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/secdrive/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestPostgresManager_ImplementsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewPostgresRepositoryManager(db)

	if _, ok := m.Files().(*files.PostgresRepository); !ok {
		t.Fatalf("Files() returned %T", m.Files())
	}
	if _, ok := m.Users().(*users.PostgresRepository); !ok {
		t.Fatalf("Users() returned %T", m.Users())
	}
}

func TestOpenPostgres(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		db, _, err := sqlmock.New()
		return db, err
	}
	m, err := OpenPostgres("postgres://x")
	if err != nil {
		t.Fatalf("OpenPostgres error: %v", err)
	}
	defer m.Close()
	if gotDriver != "pgx" || gotDSN != "postgres://x" {
		t.Fatalf("unexpected open args %q %q", gotDriver, gotDSN)
	}

	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") }
	if _, err := OpenPostgres("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPing(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()
	m := NewPostgresRepositoryManager(db)

	mock.ExpectPing()
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := m.Ping(context.Background()); !errors.Is(err, common.ErrStore) {
		t.Fatalf("want ErrStore, got %v", err)
	}
}
