package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swingdesk/radar-service/internal/db"
)

// RadarFile statuses.
const (
	StatusPending = "pending"
	StatusReview  = "review"
	StatusReady   = "ready"
	StatusError   = "error"
)

var (
	// ErrNotFound is returned when the radar file does not exist.
	ErrNotFound = errors.New("radar file not found")
	// ErrConflict is returned when the file changed since it was loaded.
	ErrConflict = errors.New("radar file modified concurrently")
	// ErrNoVersion is returned when a radar file row has no updated_at, so no
	// guarded write could ever match it.
	ErrNoVersion = errors.New("radar file has no updated_at")
)

// RadarFile is the uploaded printout this pipeline extracts. UpdatedAt is the
// version the final write is guarded on.
type RadarFile struct {
	ID           string
	OrgID        string
	StudentID    string
	FileURL      string
	FileMIME     string
	OriginalName string
	Source       string
	Status       string
	Config       map[string]any
	UpdatedAt    time.Time
}

// FileStore loads a radar file and applies its single extraction write.
type FileStore interface {
	Load(ctx context.Context, id string) (*RadarFile, error)
	Save(ctx context.Context, file *RadarFile, result Result, warning string) error
	MarkError(ctx context.Context, file *RadarFile, message string) error
}

// PgFileStore reads and writes radar_files.
type PgFileStore struct {
	db db.DB
}

// NewPgFileStore creates a Postgres-backed FileStore.
func NewPgFileStore(database db.DB) *PgFileStore {
	return &PgFileStore{db: database}
}

func (s *PgFileStore) Load(ctx context.Context, id string) (*RadarFile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, org_id, student_id, file_url, file_mime, original_name, source, status, config, updated_at
		 FROM radar_files WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get radar file: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	row := rows[0]
	f := &RadarFile{
		ID:           db.StrVal(row["id"]),
		OrgID:        db.StrVal(row["org_id"]),
		StudentID:    db.StrVal(row["student_id"]),
		FileURL:      db.StrVal(row["file_url"]),
		FileMIME:     db.StrVal(row["file_mime"]),
		OriginalName: db.StrVal(row["original_name"]),
		Source:       db.StrVal(row["source"]),
		Status:       db.StrVal(row["status"]),
		Config:       jsonObject(row["config"]),
	}
	updated, ok := db.ToTime(row["updated_at"])
	if !ok {
		return nil, fmt.Errorf("radar file %s: %w", f.ID, ErrNoVersion)
	}
	f.UpdatedAt = updated
	return f, nil
}

func (s *PgFileStore) Save(ctx context.Context, file *RadarFile, result Result, warning string) error {
	u, err := result.update(file)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	n, err := s.db.ExecCount(ctx,
		`UPDATE radar_files
		 SET status = $1, columns = $2::jsonb, shots = $3::jsonb, stats = $4::jsonb, summary = $5,
		     config = $6::jsonb, analytics = $7::jsonb, error = NULLIF($8, ''),
		     extracted_at = NOW(), updated_at = NOW()
		 WHERE id = $9 AND org_id = $10 AND updated_at = $11`,
		u.status, u.columns, u.shots, u.stats, u.summary, u.config, u.analytics, warning,
		file.ID, file.OrgID, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update radar file: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PgFileStore) MarkError(ctx context.Context, file *RadarFile, message string) error {
	n, err := s.db.ExecCount(ctx,
		`UPDATE radar_files SET status = $1, error = $2, updated_at = NOW()
		 WHERE id = $3 AND org_id = $4 AND updated_at = $5`,
		StatusError, message, file.ID, file.OrgID, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark radar file error: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// jsonObject accepts a jsonb column as decoded by pgx (map) or as raw text.
func jsonObject(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(val), &m) == nil {
			return m
		}
	case []byte:
		var m map[string]any
		if json.Unmarshal(val, &m) == nil {
			return m
		}
	}
	return map[string]any{}
}

// jsonText encodes v for a jsonb parameter; nil stays SQL NULL.
func jsonText(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
