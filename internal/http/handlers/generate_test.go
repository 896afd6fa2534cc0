package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
	"tuneforge/internal/middleware"
)

type stubService struct {
	submitJob  *domain.Job
	submitErr  error
	submitHits int

	pollResult *domain.GenerationResult
	pollErr    error
	pollHits   int

	statusState  domain.JobState
	statusTracks []domain.TrackStatus
	statusErr    error

	balance    domain.CreditsSnapshot
	balanceErr error
}

func (s *stubService) Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error) {
	s.submitHits++
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.submitJob, nil
}

func (s *stubService) PollUntilTerminal(ctx context.Context, job *domain.Job) (*domain.GenerationResult, error) {
	s.pollHits++
	return s.pollResult, s.pollErr
}

func (s *stubService) CheckStatus(ctx context.Context, jobID string) (domain.JobState, []domain.TrackStatus, error) {
	return s.statusState, s.statusTracks, s.statusErr
}

func (s *stubService) Balance(ctx context.Context) (domain.CreditsSnapshot, error) {
	return s.balance, s.balanceErr
}

type memoryTracks struct {
	saved []repo.TrackRecord
}

func (m *memoryTracks) Save(ctx context.Context, jobID, modelVersion string, result *domain.GenerationResult) error {
	m.saved = append(m.saved, repo.TrackRecord{
		JobID:        jobID,
		TrackID:      result.TrackID,
		Title:        result.Title,
		AudioURL:     result.AudioURL,
		ModelVersion: modelVersion,
	})
	return nil
}

func (m *memoryTracks) Recent(ctx context.Context, limit int) ([]repo.TrackRecord, error) {
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return m.saved[:limit], nil
}

func newTestApp(svc GenerationService, tracks TrackStore) *App {
	logger := infra.Logger(zerolog.New(io.Discard))
	return NewApp(logger, svc, tracks, nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func postGenerate(app *App, payload string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(payload))
	app.Generate(rec, req)
	return rec
}

func TestGenerateReturnsCompletedTrack(t *testing.T) {
	svc := &stubService{
		submitJob: &domain.Job{ID: "abc123", State: domain.JobStatePending},
		pollResult: &domain.GenerationResult{
			TrackID:         "clip-1",
			Title:           "Neon Nights",
			AudioURL:        "https://x/y.mp3",
			StyleTags:       "synth pop",
			DurationSeconds: 94.5,
		},
	}
	tracks := &memoryTracks{}
	app := newTestApp(svc, tracks)

	rec := postGenerate(app, `{"prompt":"upbeat synth pop","model_version":"v5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["job_id"] != "abc123" {
		t.Fatalf("job_id = %v", body["job_id"])
	}
	track := body["track"].(map[string]any)
	if track["audio_url"] != "https://x/y.mp3" {
		t.Fatalf("audio_url = %v", track["audio_url"])
	}
	if len(tracks.saved) != 1 || tracks.saved[0].JobID != "abc123" {
		t.Fatalf("history not persisted: %+v", tracks.saved)
	}
	if tracks.saved[0].ModelVersion != "v5" {
		t.Fatalf("persisted model version = %q", tracks.saved[0].ModelVersion)
	}
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	svc := &stubService{submitJob: &domain.Job{ID: "abc123"}}
	app := newTestApp(svc, nil)

	rec := postGenerate(app, `{"custom_mode":false,"prompt":"","model_version":"v5"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "invalid_request" {
		t.Fatalf("error = %v", body["error"])
	}
	if svc.pollHits != 0 {
		t.Fatalf("polling started despite invalid request")
	}
}

func TestGenerateMapsInsufficientCredits(t *testing.T) {
	svc := &stubService{submitErr: domain.ErrInsufficientCredits}
	app := newTestApp(svc, nil)

	rec := postGenerate(app, `{"prompt":"upbeat synth pop","model_version":"v5"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("code = %d, want 402", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "insufficient_credits" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestGenerateMapsVendorFailure(t *testing.T) {
	svc := &stubService{
		submitJob: &domain.Job{ID: "abc123"},
		pollErr:   &domain.GenerationFailedError{JobID: "abc123"},
	}
	app := newTestApp(svc, nil)

	rec := postGenerate(app, `{"prompt":"upbeat synth pop","model_version":"v5"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "generation_failed" {
		t.Fatalf("error = %v", body["error"])
	}
	if body["job_id"] != "abc123" {
		t.Fatalf("failure envelope must carry the job id, got %v", body["job_id"])
	}
}

func TestGenerateMapsTimeout(t *testing.T) {
	svc := &stubService{
		submitJob: &domain.Job{ID: "abc123"},
		pollErr:   &domain.GenerationTimedOutError{JobID: "abc123", Attempts: 60},
	}
	app := newTestApp(svc, nil)

	rec := postGenerate(app, `{"prompt":"upbeat synth pop","model_version":"v5"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("code = %d, want 504", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "generation_timeout" {
		t.Fatalf("error = %v", body["error"])
	}
	if body["attempts"] != float64(60) {
		t.Fatalf("attempts = %v, want 60", body["attempts"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "credits") {
		t.Fatalf("timeout message must warn about credits, got %q", msg)
	}
}

func TestGenerateMapsVendorError(t *testing.T) {
	svc := &stubService{
		submitErr: &domain.VendorError{Kind: domain.FailureServerError, Message: "boom", HTTPStatus: 503},
	}
	app := newTestApp(svc, nil)

	rec := postGenerate(app, `{"prompt":"upbeat synth pop","model_version":"v5"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "vendor_error" {
		t.Fatalf("error = %v", body["error"])
	}
	if body["upstream_status"] != float64(503) {
		t.Fatalf("upstream_status = %v", body["upstream_status"])
	}
	if msg, _ := body["message"].(string); strings.Contains(msg, "boom") {
		t.Fatalf("vendor internals leaked into user message: %q", msg)
	}
}

func TestGenerateLocalizedErrorMessage(t *testing.T) {
	svc := &stubService{submitErr: domain.ErrInsufficientCredits}
	app := newTestApp(svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{"prompt":"x","model_version":"v5"}`))
	handler := middleware.Locale("en")(http.HandlerFunc(app.Generate))
	req.Header.Set("X-Locale", "id")
	handler.ServeHTTP(rec, req)

	body := decodeBody(t, rec)
	if body["message"] != messages["insufficient_credits"]["id"] {
		t.Fatalf("message = %v, want Indonesian translation", body["message"])
	}
}

func TestGenerateStatusSingleCheck(t *testing.T) {
	svc := &stubService{
		statusState: domain.JobStateProcessing,
		statusTracks: []domain.TrackStatus{
			{ClipID: "clip-1", VendorState: "submitted"},
		},
	}
	app := newTestApp(svc, nil)

	router := chi.NewRouter()
	router.Get("/v1/generate/{job_id}", app.GenerateStatus)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/generate/abc123", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["job_id"] != "abc123" || body["state"] != string(domain.JobStateProcessing) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestCreditsClampsNegativeBalance(t *testing.T) {
	svc := &stubService{balance: domain.CreditsSnapshot{Available: -12}}
	app := newTestApp(svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	app.Credits(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["credits"] != float64(0) {
		t.Fatalf("credits = %v, want 0", body["credits"])
	}
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	app := newTestApp(&stubService{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	app.History(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "history_disabled" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestHistoryListsPersistedTracks(t *testing.T) {
	tracks := &memoryTracks{saved: []repo.TrackRecord{
		{JobID: "abc123", TrackID: "clip-1", Title: "Neon Nights", AudioURL: "https://x/y.mp3", ModelVersion: "v5"},
	}}
	app := newTestApp(&stubService{}, tracks)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/history?limit=10", nil)
	app.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	items := body["tracks"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	first := items[0].(map[string]any)
	if first["audio_url"] != "https://x/y.mp3" {
		t.Fatalf("audio_url = %v", first["audio_url"])
	}
}
