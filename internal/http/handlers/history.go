package handlers

import (
	"net/http"
	"strconv"
	"time"
)

type historyItem struct {
	ID              string    `json:"id"`
	JobID           string    `json:"job_id"`
	TrackID         string    `json:"track_id"`
	Title           string    `json:"title"`
	AudioURL        string    `json:"audio_url"`
	VideoURL        string    `json:"video_url,omitempty"`
	StyleTags       string    `json:"style_tags,omitempty"`
	ModelVersion    string    `json:"model_version"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// History lists recently completed generations. Available only when a
// database is configured.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	if a.Tracks == nil {
		a.error(w, r, http.StatusServiceUnavailable, "history_disabled", nil)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	records, err := a.Tracks.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: failed to load track history")
		a.error(w, r, http.StatusInternalServerError, "internal", nil)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:              rec.ID,
			JobID:           rec.JobID,
			TrackID:         rec.TrackID,
			Title:           rec.Title,
			AudioURL:        rec.AudioURL,
			VideoURL:        rec.VideoURL,
			StyleTags:       rec.StyleTags,
			ModelVersion:    rec.ModelVersion,
			DurationSeconds: rec.DurationSeconds,
			CreatedAt:       rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"tracks": items})
}
