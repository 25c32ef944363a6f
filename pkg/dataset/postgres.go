package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/sirupsen/logrus"

	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/types"
)

// PostgresWriter stores records in a single table, one row per record, with
// the mode specific columns in a jsonb document.
type PostgresWriter struct {
	DB        *sql.DB
	table     string
	processor *processing.Processor
	encode    processing.EncodeOptions
	log       logrus.FieldLogger
}

// OpenPostgres connects with the pgx driver and checks the connection
func OpenPostgres(ctx context.Context, dsn, table string, encode processing.EncodeOptions, log logrus.FieldLogger) (*PostgresWriter, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	w, err := NewPostgresWriter(db, table, encode, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// NewPostgresWriter wraps an open database. table may be schema qualified.
func NewPostgresWriter(db *sql.DB, table string, encode processing.EncodeOptions, log logrus.FieldLogger) (*PostgresWriter, error) {
	ident, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	format, err := processing.NormalizeFormat(encode.Format)
	if err != nil {
		return nil, err
	}
	encode.Format = format
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostgresWriter{
		DB:        db,
		table:     ident,
		processor: processing.NewProcessor(),
		encode:    encode,
		log:       log,
	}, nil
}

func quoteTable(table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// EnsureTable creates the record table when it does not exist
func (w *PostgresWriter) EnsureTable(ctx context.Context) error {
	q := `
create table if not exists ` + w.table + ` (
    id           bigserial primary key,
    created_at   timestamptz not null default now(),
    split        text not null,
    mode         text not null,
    filename     text not null,
    project      text not null,
    content      text not null,
    fields       jsonb not null,
    image        bytea not null,
    image_format text not null
)`
	if _, err := w.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.table, err)
	}
	return nil
}

// WriteSplit inserts the records of a split in one transaction
func (w *PostgresWriter) WriteSplit(ctx context.Context, s Split) (int, error) {
	q := `
insert into ` + w.table + ` (split, mode, filename, project, content, fields, image, image_format)
values ($1, $2, $3, $4, $5, $6, $7, $8)`

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range s.Records {
		args, err := w.rowArgs(s.Name, rec)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert record for %s: %w", rec.Header().Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	w.log.WithFields(logrus.Fields{"table": w.table, "split": s.Name, "records": len(s.Records)}).Info("Records stored")
	return len(s.Records), nil
}

// rowArgs are the insert arguments of one record, in column order
func (w *PostgresWriter) rowArgs(split string, rec types.Record) ([]any, error) {
	h := rec.Header()
	fields, err := fieldsJSON(rec)
	if err != nil {
		return nil, err
	}
	img, err := w.processor.EncodeBytes(h.Image, w.encode)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for %s: %w", h.Filename, err)
	}
	return []any{split, string(rec.Mode()), h.Filename, h.Project, rec.Content(), string(fields), img, w.encode.Format}, nil
}

// Write creates the table if needed and stores every split
func (w *PostgresWriter) Write(ctx context.Context, ds Dataset) (int, error) {
	if err := w.EnsureTable(ctx); err != nil {
		return 0, err
	}
	total := 0
	for _, s := range ds.Splits {
		n, err := w.WriteSplit(ctx, s)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Close closes the database
func (w *PostgresWriter) Close() error {
	return w.DB.Close()
}
