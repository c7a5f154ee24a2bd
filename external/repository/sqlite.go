package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/voxqueue/internal/repository"
	"github.com/foxseedlab/voxqueue/internal/transcriber"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// WAL mode still allows a single writer only.
	db.SetMaxOpenConns(1)
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}
	if err := RunSQLiteMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) SaveRecording(ctx context.Context, input repository.SaveRecordingInput) (*repository.Recording, error) {
	rec := repository.Recording{
		ID:           uuid.NewString(),
		FileName:     input.FileName,
		OriginalName: input.OriginalName,
		MediaType:    input.MediaType,
		SizeBytes:    int64(len(input.Data)),
		CreatedAt:    r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recordings (id, filename, original_name, media_type, size_bytes, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, rec.OriginalName, rec.MediaType, rec.SizeBytes, input.Data, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateFileName, input.FileName)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepository) InsertTranscription(ctx context.Context, input repository.InsertTranscriptionInput) error {
	segments, err := marshalSegments(input.Segments)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transcriptions (id, filename, model, text, segments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), input.FileName, input.Model, input.Text, string(segments), r.now().UTC().Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) ListTranscriptionsByFileName(ctx context.Context, fileName string) ([]repository.Transcription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, model, text, segments, created_at
		 FROM transcriptions WHERE filename = ? ORDER BY created_at ASC`,
		fileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var list []repository.Transcription
	for rows.Next() {
		var t repository.Transcription
		var segments, createdAt string
		if err := rows.Scan(&t.ID, &t.FileName, &t.Model, &t.Text, &segments, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(segments), &t.Segments); err != nil {
			return nil, fmt.Errorf("failed to decode segments: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *SQLiteRepository) Shutdown() error {
	return r.db.Close()
}

func marshalSegments(segments []transcriber.Segment) ([]byte, error) {
	if segments == nil {
		segments = []transcriber.Segment{}
	}
	b, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}
	return b, nil
}
