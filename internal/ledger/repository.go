package ledger

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Repository interface {
	Start(ctx context.Context, inv *Invocation) error
	Finish(ctx context.Context, requestID string, outcome Outcome) error
	Get(ctx context.Context, requestID string) (*Invocation, error)
	List(ctx context.Context, filter Filter) ([]*Invocation, error)
	Summary(ctx context.Context) (Summary, error)
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const invocationColumns = `request_id, skill, skill_id, file_id, file_name, file_size, status,
	invocation_status, error_code, error, card_count, created_at, updated_at`

// Start records a running invocation. A redelivered request id restarts
// the existing record.
func (r *SQLiteRepository) Start(ctx context.Context, inv *Invocation) error {
	now := r.now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if inv.Status == "" {
		inv.Status = StatusRunning
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invocations (`+invocationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			status = excluded.status,
			invocation_status = NULL,
			error_code = NULL,
			error = NULL,
			card_count = 0,
			updated_at = excluded.updated_at
	`, inv.RequestID, inv.Skill, inv.SkillID, inv.FileID, inv.FileName, inv.FileSize, inv.Status,
		nullString(inv.InvocationStatus), nullString(inv.ErrorCode), nullString(inv.Error), inv.CardCount,
		inv.CreatedAt.Format(time.RFC3339), inv.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Finish(ctx context.Context, requestID string, o Outcome) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invocations
		SET status = ?, invocation_status = ?, error_code = ?, error = ?, card_count = ?, updated_at = ?
		WHERE request_id = ?
	`, o.Status, nullString(o.InvocationStatus), nullString(o.ErrorCode), nullString(o.Error), o.CardCount,
		r.now().UTC().Format(time.RFC3339), requestID)
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, requestID string) (*Invocation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invocationColumns+` FROM invocations WHERE request_id = ?`, requestID)
	inv, err := scanInvocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return inv, err
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]*Invocation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var where []string
	var args []interface{}
	if f.Skill != "" {
		where = append(where, "skill = ?")
		args = append(args, f.Skill)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.FileID != "" {
		where = append(where, "file_id = ?")
		args = append(args, f.FileID)
	}

	query := `SELECT ` + invocationColumns + ` FROM invocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, request_id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Summary(ctx context.Context) (Summary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM invocations GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := Summary{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s[status] = n
	}
	return s, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvocation(s scanner) (*Invocation, error) {
	var inv Invocation
	var invStatus, errCode, errMsg sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&inv.RequestID, &inv.Skill, &inv.SkillID, &inv.FileID, &inv.FileName, &inv.FileSize,
		&inv.Status, &invStatus, &errCode, &errMsg, &inv.CardCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	inv.InvocationStatus = invStatus.String
	inv.ErrorCode = errCode.String
	inv.Error = errMsg.String
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &inv, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
