package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SaveRecording(ctx context.Context, input repository.SaveRecordingInput) (*repository.Recording, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO recordings (filename, original_name, media_type, size_bytes, data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, filename, original_name, media_type, size_bytes, created_at`,
		input.FileName, input.OriginalName, input.MediaType, int64(len(input.Data)), input.Data)
	var rec repository.Recording
	err := row.Scan(&rec.ID, &rec.FileName, &rec.OriginalName, &rec.MediaType, &rec.SizeBytes, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateFileName, input.FileName)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) InsertTranscription(ctx context.Context, input repository.InsertTranscriptionInput) error {
	segments, err := marshalSegments(input.Segments)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO transcriptions (filename, model, text, segments)
		 VALUES ($1, $2, $3, $4)`,
		input.FileName, input.Model, input.Text, segments)
	return err
}

func (r *PostgresRepository) ListTranscriptionsByFileName(ctx context.Context, fileName string) ([]repository.Transcription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, filename, model, text, segments, created_at
		 FROM transcriptions WHERE filename = $1 ORDER BY created_at ASC`,
		fileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Transcription
	for rows.Next() {
		var t repository.Transcription
		var segments []byte
		if err := rows.Scan(&t.ID, &t.FileName, &t.Model, &t.Text, &segments, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(segments, &t.Segments); err != nil {
			return nil, fmt.Errorf("failed to decode segments: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Shutdown() error {
	r.pool.Close()
	return nil
}
