package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/cms"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements cms.Repository on PostgreSQL. Each record type has
// its own table holding the document body as JSONB.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Connect opens a pool for databaseURL and verifies it with a ping
func Connect(ctx context.Context, databaseURL string) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewWithPool(pool), nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return cms.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", cms.ErrDuplicate, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation
			return cms.ErrNotFound
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// table returns the table name for t. Names come from the fixed record
// type table, never from input, so they are safe to format into SQL.
func table(t cms.RecordType) (string, error) {
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", cms.ErrUnknownType, t)
	}
	return pgx.Identifier{t.Collection()}.Sanitize(), nil
}

// body strips the identifier from a document before it is written.
func body(doc cms.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == cms.StorageIDField {
			continue
		}
		out[k] = v
	}
	return out
}

func (r *Repository) Insert(ctx context.Context, t cms.RecordType, doc cms.Document) (string, error) {
	tbl, err := table(t)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`INSERT INTO %s (doc) VALUES ($1::jsonb) RETURNING id::text`, tbl)
	var id string
	if err := r.db.QueryRow(ctx, query, body(doc)).Scan(&id); err != nil {
		return "", r.handlePostgresError("insert", err)
	}
	return id, nil
}

func (r *Repository) FindAll(ctx context.Context, t cms.RecordType) ([]cms.Document, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT id::text, doc FROM %s ORDER BY seq`, tbl))
	if err != nil {
		return nil, r.handlePostgresError("find_all", err)
	}
	defer rows.Close()

	docs := []cms.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, r.handlePostgresError("find_all", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("find_all", err)
	}
	return docs, nil
}

func (r *Repository) FindByID(ctx context.Context, t cms.RecordType, id string) (cms.Document, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, cms.ErrNotFound
	}

	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT id::text, doc FROM %s WHERE id = $1`, tbl), id)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, r.handlePostgresError("find_by_id", err)
	}
	return doc, nil
}

func (r *Repository) FindOne(ctx context.Context, t cms.RecordType, field string, value any) (cms.Document, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id::text, doc FROM %s WHERE doc->>$1::text = $2::text ORDER BY seq LIMIT 1`, tbl)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, field, fmt.Sprint(value)))
	if err != nil {
		return nil, r.handlePostgresError("find_one", err)
	}
	return doc, nil
}

func (r *Repository) UpdateByID(ctx context.Context, t cms.RecordType, id string, set cms.Document) (cms.Document, error) {
	tbl, err := table(t)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, cms.ErrNotFound
	}

	query := fmt.Sprintf(`
		UPDATE %s SET doc = doc || $2::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING id::text, doc`, tbl)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, body(set)))
	if err != nil {
		return nil, r.handlePostgresError("update", err)
	}
	return doc, nil
}

func (r *Repository) DeleteByID(ctx context.Context, t cms.RecordType, id string) (bool, error) {
	tbl, err := table(t)
	if err != nil {
		return false, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tbl), id)
	if err != nil {
		return false, r.handlePostgresError("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.pool != nil {
		return r.pool.Ping(ctx)
	}
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func (r *Repository) Close(ctx context.Context) error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func scanDocument(row pgx.Row) (cms.Document, error) {
	var (
		id  string
		doc map[string]any
	)
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	out := cms.Document(doc)
	if out == nil {
		out = cms.Document{}
	}
	out[cms.StorageIDField] = id
	return out, nil
}
