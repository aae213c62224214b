// Package results implements result record persistence over PostgreSQL.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/dbx"
	"github.com/dmitrijs2005/voicetranslator/internal/server/models"
)

const resultColumns = `r.id, r.owner_id, r.created_at, r.source_language, r.translated_text,
		 r.output_blob_id, r.processing_duration, r.original_filename, r.degraded, r.status`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, res *models.Result) error {
	query := `
		INSERT INTO results (id, owner_id, created_at, source_language, translated_text,
			output_blob_id, processing_duration, original_filename, degraded, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.OwnerID, res.CreatedAt, res.SourceLanguage, res.TranslatedText,
		res.OutputBlobID, res.ProcessingDuration.Seconds(), res.OriginalFilename, res.Degraded, string(res.Status))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results r WHERE r.id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByBlobID(ctx context.Context, blobID string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results r WHERE r.output_blob_id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, blobID))
}

func (r *PostgresRepository) ListByOwnerHistory(ctx context.Context, ownerID string) ([]*models.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM users u
		CROSS JOIN LATERAL unnest(u.history) WITH ORDINALITY AS h(result_id, pos)
		JOIN results r ON r.id = h.result_id AND r.owner_id = u.id
		WHERE u.id = $1 AND r.status = 'completed'
		ORDER BY h.pos
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	list := []*models.Result{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.ResultStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE results SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Result, error) {
	var (
		item    models.Result
		seconds float64
		status  string
	)
	err := s.Scan(&item.ID, &item.OwnerID, &item.CreatedAt, &item.SourceLanguage, &item.TranslatedText,
		&item.OutputBlobID, &seconds, &item.OriginalFilename, &item.Degraded, &status)
	if err != nil {
		return nil, err
	}
	item.ProcessingDuration = time.Duration(seconds * float64(time.Second))
	item.Status = models.ResultStatus(status)
	return &item, nil
}

func scanOne(row *sql.Row) (*models.Result, error) {
	item, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}
