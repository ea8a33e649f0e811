package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobflow/internal/model"
)

func (s *SQLite) Save(ctx context.Context, jobs []model.Job) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO jobs (position, id, data, status, result, error, worker_id, attempts, created_at, completed_at, retry_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, j := range jobs {
		var errMsg sql.NullString
		if j.Error != nil {
			errMsg = sql.NullString{String: j.Error.Message, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			i, j.ID, rawString(j.Data), string(j.Status), rawString(j.Result), errMsg,
			j.WorkerID, j.Attempts,
			j.CreatedAt.Format(time.RFC3339Nano),
			timeString(j.CompletedAt),
			timeString(j.RetryAt),
		)
		if err != nil {
			return fmt.Errorf("insert job %s: %w", j.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) ([]model.Job, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, data, status, result, error, worker_id, attempts,
		       created_at, completed_at, retry_at
		FROM jobs
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var j model.Job
		var status, createdAtStr string
		var data, result, errMsg, completedAtStr, retryAtStr sql.NullString

		if err := rows.Scan(
			&j.ID, &data, &status, &result, &errMsg, &j.WorkerID, &j.Attempts,
			&createdAtStr, &completedAtStr, &retryAtStr,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		j.Status = model.Status(status)
		if data.Valid {
			j.Data = json.RawMessage(data.String)
		}
		if result.Valid {
			j.Result = json.RawMessage(result.String)
		}
		if errMsg.Valid {
			j.Error = &model.JobError{Message: errMsg.String}
		}
		created, err := time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", j.ID, err)
		}
		j.CreatedAt = created
		if j.CompletedAt, err = parseTime(completedAtStr); err != nil {
			return nil, fmt.Errorf("parse completed_at for %s: %w", j.ID, err)
		}
		if j.RetryAt, err = parseTime(retryAtStr); err != nil {
			return nil, fmt.Errorf("parse retry_at for %s: %w", j.ID, err)
		}

		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func rawString(raw json.RawMessage) sql.NullString {
	if raw == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func timeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
