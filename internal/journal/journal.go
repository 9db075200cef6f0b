// Package journal keeps an audit trail of booking attempts.
package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/cita-scheduler/internal/db"
	"github.com/example/cita-scheduler/internal/domain/cita"
	"github.com/example/cita-scheduler/internal/migrate"
)

// Store is a journal that can also list what it recorded.
type Store interface {
	cita.Journal
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]cita.AttemptRecord, error)
	Close() error
}

type Config struct {
	DatabaseURL string
	SQLitePath  string
}

// Open picks Postgres when a database URL is set, then SQLite, then Nop.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		if err := migrate.Up(ctx, d); err != nil {
			d.Close()
			return nil, fmt.Errorf("journal: migrate: %w", err)
		}
		slog.Info("journal: postgres")
		return NewPostgres(d), nil
	case cfg.SQLitePath != "":
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		slog.Info("journal: sqlite", "path", cfg.SQLitePath)
		return s, nil
	default:
		return Nop{}, nil
	}
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(context.Context, cita.AttemptRecord) error { return nil }

func (Nop) Recent(context.Context, int) ([]cita.AttemptRecord, error) { return nil, nil }

func (Nop) Close() error { return nil }
