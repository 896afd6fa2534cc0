package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
	"tuneforge/internal/infra/geoip"
	"tuneforge/internal/middleware"
)

// GenerationService is the slice of the orchestration layer the handlers
// depend on. *generation.Service satisfies it.
type GenerationService interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error)
	PollUntilTerminal(ctx context.Context, job *domain.Job) (*domain.GenerationResult, error)
	CheckStatus(ctx context.Context, jobID string) (domain.JobState, []domain.TrackStatus, error)
	Balance(ctx context.Context) (domain.CreditsSnapshot, error)
}

// TrackStore persists and lists completed generations.
type TrackStore interface {
	Save(ctx context.Context, jobID, modelVersion string, result *domain.GenerationResult) error
	Recent(ctx context.Context, limit int) ([]repo.TrackRecord, error)
}

// App bundles the handler dependencies. Tracks and Geo may be nil; history
// endpoints and country annotation degrade gracefully without them.
type App struct {
	Logger  infra.Logger
	Service GenerationService
	Tracks  TrackStore
	Geo     geoip.CountryResolver
}

func NewApp(logger infra.Logger, svc GenerationService, tracks TrackStore, geo geoip.CountryResolver) *App {
	return &App{Logger: logger, Service: svc, Tracks: tracks, Geo: geo}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the structured error envelope: a machine-checkable code plus a
// human-readable message in the negotiated locale. Extra carries additional
// machine fields (job_id, retry hints); internals never leak into it.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string, extra map[string]any) {
	body := map[string]any{
		"error":   code,
		"message": localizedMessage(code, middleware.LocaleFromContext(r.Context())),
	}
	for k, v := range extra {
		body[k] = v
	}
	a.json(w, status, body)
}
