package journal

import (
	"context"
	"fmt"

	"github.com/example/cita-scheduler/internal/db"
	"github.com/example/cita-scheduler/internal/domain/cita"
)

// pool is the part of *db.DB the journal uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (db.Rows, error)
	Close()
}

type Postgres struct{ db pool }

func NewPostgres(d *db.DB) *Postgres { return &Postgres{db: d} }

func (p *Postgres) Record(ctx context.Context, rec cita.AttemptRecord) error {
	err := p.db.Exec(ctx, `
INSERT INTO cita_attempts(run_id,attempt,province,operation,status,detail,code,started_at,ended_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.RunID, rec.Attempt, string(rec.Province), string(rec.Operation), rec.Status, rec.Detail, rec.Code, rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]cita.AttemptRecord, error) {
	rows, err := p.db.Query(ctx, `
SELECT run_id,attempt,province,operation,status,detail,code,started_at,ended_at
FROM cita_attempts
ORDER BY id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, db.WrapNotFound(err)
	}
	defer rows.Close()

	var out []cita.AttemptRecord
	for rows.Next() {
		var rec cita.AttemptRecord
		var province, operation string
		if err := rows.Scan(&rec.RunID, &rec.Attempt, &province, &operation, &rec.Status, &rec.Detail, &rec.Code, &rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, err
		}
		rec.Province = cita.Province(province)
		rec.Operation = cita.OperationType(operation)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
