package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
)

const (
	stmtInsertUpload = "insert_upload"
	stmtLatestUpload = "latest_upload"
	stmtGetUpload    = "get_upload"
	stmtListUploads  = "list_uploads"
	stmtDeleteUpload = "delete_upload"
)

// ErrInvalidID is returned for upload ids that are not UUIDs
var ErrInvalidID = errors.New("invalid upload id")

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUpload(row rowScanner, withContent bool) (*Upload, error) {
	var u Upload
	var kind string
	dest := []interface{}{&u.ID, &kind, &u.Name, &u.Size, &u.Rows}
	if withContent {
		dest = append(dest, &u.Content)
	}
	dest = append(dest, &u.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Kind = dataset.Kind(kind)
	return &u, nil
}

// SaveUpload stores an upload
func (r *Repository) SaveUpload(ctx context.Context, u *Upload) error {
	stmt, err := r.db.GetPreparedStatement(stmtInsertUpload)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, u.ID, string(u.Kind), u.Name, u.Size, u.Rows, u.Content, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	return nil
}

// LatestUpload returns the most recent upload of a kind
func (r *Repository) LatestUpload(ctx context.Context, kind dataset.Kind) (*Upload, error) {
	stmt, err := r.db.GetPreparedStatement(stmtLatestUpload)
	if err != nil {
		return nil, err
	}

	u, err := scanUpload(stmt.QueryRowContext(ctx, string(kind)), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no %s upload: %w", kind, dataset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest upload: %w", err)
	}

	return u, nil
}

// GetUpload returns one upload with its content
func (r *Repository) GetUpload(ctx context.Context, id string) (*Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	stmt, err := r.db.GetPreparedStatement(stmtGetUpload)
	if err != nil {
		return nil, err
	}

	u, err := scanUpload(stmt.QueryRowContext(ctx, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", id, dataset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}

	return u, nil
}

// ListUploads returns every upload without content, newest first
func (r *Repository) ListUploads(ctx context.Context) ([]*Upload, error) {
	stmt, err := r.db.GetPreparedStatement(stmtListUploads)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*Upload{}
	for rows.Next() {
		u, err := scanUpload(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// DeleteUpload removes an upload and reports its kind
func (r *Repository) DeleteUpload(ctx context.Context, id string) (dataset.Kind, error) {
	u, err := r.GetUpload(ctx, id)
	if err != nil {
		return "", err
	}

	stmt, err := r.db.GetPreparedStatement(stmtDeleteUpload)
	if err != nil {
		return "", err
	}

	if _, err := stmt.ExecContext(ctx, id); err != nil {
		return "", fmt.Errorf("failed to delete upload: %w", err)
	}

	return u.Kind, nil
}
