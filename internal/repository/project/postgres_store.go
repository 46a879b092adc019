package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgres connects through the pgx database/sql driver and pings once.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS pegasus_projects (
  project_key TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  target_version TEXT NOT NULL,
  body JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pegasus_fix_audit (
  id SERIAL PRIMARY KEY,
  project_key TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  iteration INTEGER NOT NULL,
  fix_description TEXT NOT NULL DEFAULT '',
  operations_applied INTEGER NOT NULL,
  operations_failed INTEGER NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pegasus_fix_audit_project_key ON pegasus_fix_audit (project_key);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) SaveProject(ctx context.Context, key string, p types.Project) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("project key is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pegasus_projects (project_key, name, target_version, body, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (project_key)
DO UPDATE SET name=EXCLUDED.name, target_version=EXCLUDED.target_version,
  body=EXCLUDED.body, updated_at=EXCLUDED.updated_at
`, key, p.Name, p.TargetVersion, string(body), time.Now())
	return err
}

func (s *PostgresStore) GetProject(ctx context.Context, key string) (types.Project, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return types.Project{}, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM pegasus_projects WHERE project_key=$1`, strings.TrimSpace(key)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, ErrNotFound
	}
	if err != nil {
		return types.Project{}, err
	}
	var p types.Project
	if err := json.Unmarshal(body, &p); err != nil {
		return types.Project{}, fmt.Errorf("decode project %s: %w", key, err)
	}
	return p, nil
}

func (s *PostgresStore) RecordFix(ctx context.Context, rec fixer.AuditRecord) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pegasus_fix_audit (project_key, session_id, iteration, fix_description, operations_applied, operations_failed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, rec.ProjectKey, rec.SessionID, rec.Iteration, rec.FixDescription, rec.OperationsApplied, rec.OperationsFailed, at)
	return err
}

func (s *PostgresStore) ListFixes(ctx context.Context, key string) ([]fixer.AuditRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT project_key, session_id, iteration, fix_description, operations_applied, operations_failed, created_at
FROM pegasus_fix_audit WHERE project_key=$1 ORDER BY id`, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fixer.AuditRecord
	for rows.Next() {
		var rec fixer.AuditRecord
		if err := rows.Scan(&rec.ProjectKey, &rec.SessionID, &rec.Iteration, &rec.FixDescription,
			&rec.OperationsApplied, &rec.OperationsFailed, &rec.At); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
