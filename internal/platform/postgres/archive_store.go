package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx so the store can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ArchiveStore persists terminal tasks to the task_archive table.
type ArchiveStore struct {
	db     DBTX
	logger *slog.Logger
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(db DBTX, logger *slog.Logger) *ArchiveStore {
	return &ArchiveStore{
		db:     db,
		logger: logger.With("component", "task_archive"),
	}
}

// RecordTask inserts a terminal task into the archive. Re-archiving the
// same task ID updates the existing row, so best-effort retries are safe.
func (s *ArchiveStore) RecordTask(ctx context.Context, task domain.Task) error {
	query := `
		INSERT INTO task_archive (id, status, result_url, detail, output_file, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    result_url = EXCLUDED.result_url,
		    detail = EXCLUDED.detail,
		    finished_at = EXCLUDED.finished_at
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Status,
		task.ResultURL,
		task.Detail,
		task.OutputFile,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to archive task",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		return fmt.Errorf("failed to archive task: %w", err)
	}

	return nil
}

// ListFinished returns archived tasks newest-first with paging.
func (s *ArchiveStore) ListFinished(ctx context.Context, skip, limit int) ([]domain.Task, error) {
	query := `
		SELECT id, status, result_url, detail, output_file, created_at, finished_at
		FROM task_archive
		ORDER BY finished_at DESC
		OFFSET $1 LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query task archive: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		var resultURL, detail sql.NullString
		var finishedAt time.Time

		if err := rows.Scan(&t.ID, &t.Status, &resultURL, &detail, &t.OutputFile, &t.CreatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		t.ResultURL = resultURL.String
		t.Detail = detail.String
		t.UpdatedAt = finishedAt
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive rows: %w", err)
	}

	return tasks, nil
}

// Count returns the number of archived tasks.
func (s *ArchiveStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_archive`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count archived tasks: %w", err)
	}
	return n, nil
}
