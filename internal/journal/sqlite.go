package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cita_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	province TEXT NOT NULL,
	operation TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	code TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cita_attempts_run ON cita_attempts(run_id);
`

type SQLite struct{ db *sql.DB }

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	d.SetMaxOpenConns(1)
	if _, err := d.ExecContext(ctx, sqliteSchema); err != nil {
		d.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	return &SQLite{db: d}, nil
}

func (s *SQLite) Record(ctx context.Context, rec cita.AttemptRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cita_attempts(run_id,attempt,province,operation,status,detail,code,started_at,ended_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Attempt, string(rec.Province), string(rec.Operation), rec.Status, rec.Detail, rec.Code,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]cita.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id,attempt,province,operation,status,detail,code,started_at,ended_at
FROM cita_attempts
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cita.AttemptRecord
	for rows.Next() {
		var rec cita.AttemptRecord
		var province, operation, started, ended string
		if err := rows.Scan(&rec.RunID, &rec.Attempt, &province, &operation, &rec.Status, &rec.Detail, &rec.Code, &started, &ended); err != nil {
			return nil, err
		}
		rec.Province = cita.Province(province)
		rec.Operation = cita.OperationType(operation)
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("started_at: %w", err)
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("ended_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
