package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/db"
	"github.com/Thrusbalda/auto-work-log/internal/repository"
)

func TestKVRepository_SetGetRemove(t *testing.T) {
	repo := setupKVRepository(t)
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, "awl_settings"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v; want false, nil", ok, err)
	}

	if err := repo.Set(ctx, "awl_settings", `{"radiusMeters":200}`); err != nil {
		t.Fatalf("Set() err = %v", err)
	}
	if err := repo.Set(ctx, "awl_settings", `{"radiusMeters":300}`); err != nil {
		t.Fatalf("Set() overwrite err = %v", err)
	}

	value, ok, err := repo.Get(ctx, "awl_settings")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v; want true, nil", ok, err)
	}
	if value != `{"radiusMeters":300}` {
		t.Fatalf("Get() value = %s, want overwritten value", value)
	}

	if err := repo.Remove(ctx, "awl_settings"); err != nil {
		t.Fatalf("Remove() err = %v", err)
	}
	if _, ok, err := repo.Get(ctx, "awl_settings"); err != nil || ok {
		t.Fatalf("Get() after remove = ok %v, err %v; want false, nil", ok, err)
	}
	if err := repo.Remove(ctx, "awl_settings"); err != nil {
		t.Fatalf("Remove() of missing key err = %v, want nil", err)
	}
}

func setupKVRepository(t *testing.T) *repository.KVRepository {
	t.Helper()
	return repository.NewKVRepository(setupDatabase(t))
}

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return database
}

func TestKVRepository_SetRecordsUpdateTime(t *testing.T) {
	database := setupDatabase(t)
	repo := repository.NewKVRepository(database)
	ctx := context.Background()

	if err := repo.Set(ctx, "awl_current_session_id", "abc"); err != nil {
		t.Fatalf("Set() err = %v", err)
	}

	var updatedAt string
	row := database.QueryRowContext(ctx, `SELECT updated_at FROM kv_store WHERE key = ?`, "awl_current_session_id")
	if err := row.Scan(&updatedAt); err != nil {
		t.Fatalf("scan updated_at: %v", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		t.Fatalf("updated_at %q is not RFC 3339: %v", updatedAt, err)
	}
}
