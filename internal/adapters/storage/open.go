package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/ports"
	"github.com/jmoiron/sqlx"
)

// ErrStoreNotFound indica que la base SQLite todavía no existe.
var ErrStoreNotFound = errors.New("store not found")

// Open crea el store según el driver: "sqlite" (por defecto) o "postgres".
func Open(driver, dsn string, timeout time.Duration) (ports.CurveStore, error) {
	switch driver {
	case "", "sqlite":
		s, err := NewSQLiteStorage(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStorage(dsn, timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("storage.Open: unknown driver %q", driver)
}

// OpenReadOnly abre un store existente sin crear archivos ni aplicar el schema.
// Para SQLite devuelve ErrStoreNotFound si el archivo no existe; las escrituras fallan.
func OpenReadOnly(driver, dsn string, timeout time.Duration) (ports.CurveStore, error) {
	switch driver {
	case "", "sqlite":
		if dsn == ":memory:" {
			return nil, fmt.Errorf("storage.OpenReadOnly: %w: in-memory database", ErrStoreNotFound)
		}
		if _, err := os.Stat(dsn); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("storage.OpenReadOnly: %q: %w", dsn, ErrStoreNotFound)
			}
			return nil, fmt.Errorf("storage.OpenReadOnly: %w", err)
		}
		db, err := sql.Open("sqlite", "file:"+dsn+"?mode=ro")
		if err != nil {
			return nil, fmt.Errorf("storage.OpenReadOnly: open %q: %w", dsn, err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return &SQLiteStorage{db: db}, nil
	case "postgres":
		db, err := sqlx.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage.OpenReadOnly: open: %w", err)
		}
		s := NewPostgresStorageDB(db, timeout)
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage.OpenReadOnly: ping: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("storage.OpenReadOnly: unknown driver %q", driver)
}
