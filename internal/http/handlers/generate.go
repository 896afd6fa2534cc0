package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tuneforge/internal/domain"
	"tuneforge/internal/middleware"
)

type generateRequest struct {
	CustomMode       bool   `json:"custom_mode"`
	Prompt           string `json:"prompt"`
	Lyrics           string `json:"lyrics"`
	StyleTags        string `json:"style_tags"`
	Title            string `json:"title"`
	InstrumentalOnly bool   `json:"instrumental_only"`
	ModelVersion     string `json:"model_version"`
}

type trackPayload struct {
	TrackID         string  `json:"track_id"`
	Title           string  `json:"title"`
	AudioURL        string  `json:"audio_url"`
	VideoURL        string  `json:"video_url,omitempty"`
	StyleTags       string  `json:"style_tags,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Generate submits a job to the vendor and drives the polling loop to a
// terminal state before answering. The request context flows into every
// vendor call and inter-poll sleep, so a disconnected client aborts the loop.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_request", nil)
		return
	}

	genReq := domain.GenerationRequest{
		CustomMode:        req.CustomMode,
		DescriptionPrompt: req.Prompt,
		StructuredPrompt:  req.Lyrics,
		StyleTags:         req.StyleTags,
		Title:             req.Title,
		InstrumentalOnly:  req.InstrumentalOnly,
		ModelVersion:      req.ModelVersion,
	}

	log := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("country", a.clientCountry(r)).
		Logger()

	job, err := a.Service.Submit(r.Context(), genReq)
	if err != nil {
		a.writeGenerationError(w, r, err, "")
		return
	}

	result, err := a.Service.PollUntilTerminal(r.Context(), job)
	if err != nil {
		a.writeGenerationError(w, r, err, job.ID)
		return
	}

	if a.Tracks != nil {
		if err := a.Tracks.Save(r.Context(), job.ID, genReq.ModelVersion, result); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("handlers: failed to persist track history")
		}
	}

	log.Info().Str("job_id", job.ID).Int("attempts", job.AttemptsMade).Msg("handlers: generation served")
	a.json(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"state":  domain.JobStateCompleted,
		"track": trackPayload{
			TrackID:         result.TrackID,
			Title:           result.Title,
			AudioURL:        result.AudioURL,
			VideoURL:        result.VideoURL,
			StyleTags:       result.StyleTags,
			DurationSeconds: result.DurationSeconds,
		},
	})
}

// GenerateStatus is the single-shot status check: one vendor call, no loop,
// not rate limited.
func (a *App) GenerateStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, r, http.StatusBadRequest, "invalid_request", nil)
		return
	}

	state, tracks, err := a.Service.CheckStatus(r.Context(), jobID)
	if err != nil {
		a.writeGenerationError(w, r, err, jobID)
		return
	}

	payload := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		payload = append(payload, map[string]any{
			"clip_id":          t.ClipID,
			"state":            t.VendorState,
			"title":            t.Title,
			"style_tags":       t.StyleTags,
			"audio_url":        t.AudioURL,
			"video_url":        t.VideoURL,
			"duration_seconds": t.DurationSeconds,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"state":  state,
		"tracks": payload,
	})
}

// writeGenerationError maps the error taxonomy onto HTTP statuses. The job id
// is attached when known so a caller hitting a timeout can keep checking the
// status endpoint on their own.
func (a *App) writeGenerationError(w http.ResponseWriter, r *http.Request, err error, jobID string) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		return
	}

	extra := map[string]any{}
	if jobID != "" {
		extra["job_id"] = jobID
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		extra["field"] = verr.Field
		extra["reason"] = verr.Reason
		a.error(w, r, http.StatusBadRequest, "invalid_request", extra)
		return
	}
	if errors.Is(err, domain.ErrInsufficientCredits) {
		a.error(w, r, http.StatusPaymentRequired, "insufficient_credits", extra)
		return
	}
	var failed *domain.GenerationFailedError
	if errors.As(err, &failed) {
		a.error(w, r, http.StatusBadGateway, "generation_failed", extra)
		return
	}
	var timedOut *domain.GenerationTimedOutError
	if errors.As(err, &timedOut) {
		extra["attempts"] = timedOut.Attempts
		a.error(w, r, http.StatusGatewayTimeout, "generation_timeout", extra)
		return
	}
	var vendorErr *domain.VendorError
	if errors.As(err, &vendorErr) {
		if vendorErr.HTTPStatus > 0 {
			extra["upstream_status"] = vendorErr.HTTPStatus
		}
		a.error(w, r, http.StatusBadGateway, "vendor_error", extra)
		return
	}

	a.Logger.Error().Err(err).Msg("handlers: unexpected generation error")
	a.error(w, r, http.StatusInternalServerError, "internal", extra)
}

func (a *App) clientCountry(r *http.Request) string {
	if a.Geo == nil {
		return ""
	}
	ip := middleware.ClientIP(r)
	if ip == "" {
		return ""
	}
	country, err := a.Geo.CountryCode(ip)
	if err != nil {
		return ""
	}
	return country
}
