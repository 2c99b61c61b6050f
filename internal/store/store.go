package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"docrouter/internal/pipeline"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type Document struct {
	ID        string
	Filename  string
	Content   string
	CreatedAt time.Time
}

type Run struct {
	ID         string
	DocumentID string
	Status     string // queued | running | done | failed
	Summary    string
	Degraded   bool
	TotalMS    int64
	CreatedAt  time.Time
}

type ChunkResult struct {
	RunID     string
	Position  int
	Role      string
	Provider  string
	Attempts  int
	OK        bool
	Output    string
	Error     string
	ElapsedMS int64
}

func (s *Store) InsertDocument(ctx context.Context, filename string, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (id, filename, content) VALUES ($1,$2,$3)`,
		id, filename, content)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	var d Document
	row := s.db.QueryRowContext(ctx, `SELECT id, filename, content, created_at FROM documents WHERE id = $1`, id)
	err := row.Scan(&d.ID, &d.Filename, &d.Content, &d.CreatedAt)
	return d, err
}

func (s *Store) CreateRun(ctx context.Context, documentID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO summary_runs (id, document_id, status) VALUES ($1,$2,'queued')`,
		id, documentID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) MarkRunRunning(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE summary_runs SET status = 'running' WHERE id = $1`, runID)
	return err
}

func (s *Store) MarkRunFailed(ctx context.Context, runID string, reason string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE summary_runs SET status = 'failed', summary = $2, degraded = true WHERE id = $1`, runID, reason)
	return err
}

func (s *Store) GetRunDocumentID(ctx context.Context, runID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document_id FROM summary_runs WHERE id = $1`, runID)
	var docID string
	err := row.Scan(&docID)
	return docID, err
}

// SaveResult persists a completed pipeline run and its per-chunk results in
// one transaction. Chunk results are append-only; re-saving a run replaces
// nothing.
func (s *Store) SaveResult(ctx context.Context, runID string, res pipeline.SummaryResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE summary_runs SET status = 'done', summary = $2, degraded = $3, total_ms = $4 WHERE id = $1`,
		runID, res.Summary, res.Degraded, res.Elapsed.Milliseconds())
	if err != nil {
		return err
	}
	for _, p := range res.Partials {
		_, err = tx.ExecContext(ctx, `INSERT INTO chunk_results (run_id, position, role, provider, attempts, ok, output, error, elapsed_ms)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			runID, p.Position, string(p.Role), p.Provider, p.Attempts, p.OK(), p.Output, p.Err, p.Elapsed.Milliseconds())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetRun(ctx context.Context, runID string) (Run, []ChunkResult, error) {
	var r Run
	var summary sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT id, document_id, status, summary, degraded, total_ms, created_at FROM summary_runs WHERE id = $1`, runID)
	if err := row.Scan(&r.ID, &r.DocumentID, &r.Status, &summary, &r.Degraded, &r.TotalMS, &r.CreatedAt); err != nil {
		return r, nil, err
	}
	r.Summary = summary.String

	rows, err := s.db.QueryContext(ctx, `SELECT run_id, position, role, provider, attempts, ok, output, error, elapsed_ms
		FROM chunk_results WHERE run_id = $1 ORDER BY position ASC`, runID)
	if err != nil {
		return r, nil, err
	}
	defer rows.Close()

	var results []ChunkResult
	for rows.Next() {
		var cr ChunkResult
		if err := rows.Scan(&cr.RunID, &cr.Position, &cr.Role, &cr.Provider, &cr.Attempts, &cr.OK, &cr.Output, &cr.Error, &cr.ElapsedMS); err != nil {
			return r, nil, err
		}
		results = append(results, cr)
	}
	return r, results, rows.Err()
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, status, summary, degraded, total_ms, created_at
		FROM summary_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summary sql.NullString
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Status, &summary, &r.Degraded, &r.TotalMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Summary = summary.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
