package drop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for a unique constraint
// breach; the drops primary key turns racing explicit-slug creations
// into exactly one winner.
const uniqueViolation = "23505"

// PostgresStore persists drops in a single drops table, one row per
// Drop with the file facet embedded.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const dropColumns = `slug, title, description, password, is_private, is_favorite,
	file_name, file_size, file_type, file_hash, storage_type, storage_path,
	created_time, updated_time`

func scanDrop(row interface{ Scan(...any) error }) (*Drop, error) {
	var d Drop
	err := row.Scan(
		&d.Slug, &d.Title, &d.Description, &d.Password, &d.IsPrivate, &d.IsFavorite,
		&d.FileName, &d.FileSize, &d.FileType, &d.FileHash, &d.StorageType, &d.StoragePath,
		&d.CreatedTime, &d.UpdatedTime,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) Create(ctx context.Context, d *Drop) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drops (`+dropColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		d.Slug, d.Title, d.Description, d.Password, d.IsPrivate, d.IsFavorite,
		d.FileName, d.FileSize, d.FileType, d.FileHash, d.StorageType, d.StoragePath,
		d.CreatedTime, d.UpdatedTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return &MetadataError{Op: "create", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Drop, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+dropColumns+` FROM drops WHERE slug = $1
	`, slug)
	d, err := scanDrop(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &MetadataError{Op: "get", Err: err}
	}
	return d, nil
}

// Update applies the partial mutation and returns the fresh row. The
// file facet columns are deliberately untouchable here.
func (s *PostgresStore) Update(ctx context.Context, slug string, u Update) (*Drop, error) {
	set := "updated_time = $1"
	args := []any{time.Now().UTC()}
	n := 2

	add := func(col string, v any) {
		set += fmt.Sprintf(", %s = $%d", col, n)
		args = append(args, v)
		n++
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Password != nil {
		add("password", *u.Password)
	}
	if u.IsPrivate != nil {
		add("is_private", *u.IsPrivate)
	}
	if u.IsFavorite != nil {
		add("is_favorite", *u.IsFavorite)
	}

	args = append(args, slug)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE drops SET %s WHERE slug = $%d RETURNING %s`, set, n, dropColumns),
		args...,
	)
	d, err := scanDrop(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &MetadataError{Op: "update", Err: err}
	}
	return d, nil
}

func (s *PostgresStore) DeleteBySlug(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drops WHERE slug = $1`, slug)
	if err != nil {
		return &MetadataError{Op: "delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &MetadataError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]*Drop, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drops`).Scan(&total); err != nil {
		return nil, 0, &MetadataError{Op: "list", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dropColumns+` FROM drops
		ORDER BY created_time DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, &MetadataError{Op: "list", Err: err}
	}
	defer rows.Close()

	var drops []*Drop
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, 0, &MetadataError{Op: "list", Err: err}
		}
		drops = append(drops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &MetadataError{Op: "list", Err: err}
	}
	return drops, total, nil
}
