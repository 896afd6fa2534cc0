package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tuneforge/internal/domain"
)

// TrackRecord is one persisted completed generation.
type TrackRecord struct {
	ID              string
	JobID           string
	TrackID         string
	Title           string
	AudioURL        string
	VideoURL        string
	StyleTags       string
	ModelVersion    string
	DurationSeconds float64
	CreatedAt       time.Time
}

// TrackRepositoryPG persists completed generations to PostgreSQL. Writes are
// best-effort from the caller's perspective: the generation result is already
// in hand when Save runs, so a failed insert is logged, not surfaced.
type TrackRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTrackRepository creates a track history repository backed by PostgreSQL.
func NewTrackRepository(pool *pgxpool.Pool) *TrackRepositoryPG {
	return &TrackRepositoryPG{pool: pool}
}

// Save inserts one completed generation.
func (r *TrackRepositoryPG) Save(ctx context.Context, jobID, modelVersion string, result *domain.GenerationResult) error {
	query := `
INSERT INTO tracks (id, job_id, track_id, title, audio_url, video_url, style_tags, model_version, duration_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		uuid.NewString(),
		jobID,
		result.TrackID,
		result.Title,
		result.AudioURL,
		result.VideoURL,
		result.StyleTags,
		modelVersion,
		result.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// Recent lists the most recently completed generations, newest first.
func (r *TrackRepositoryPG) Recent(ctx context.Context, limit int) ([]TrackRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
SELECT id, job_id, track_id, title, audio_url, video_url, style_tags, model_version, duration_seconds, created_at
FROM tracks
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var records []TrackRecord
	for rows.Next() {
		var rec TrackRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.JobID,
			&rec.TrackID,
			&rec.Title,
			&rec.AudioURL,
			&rec.VideoURL,
			&rec.StyleTags,
			&rec.ModelVersion,
			&rec.DurationSeconds,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return records, nil
}
