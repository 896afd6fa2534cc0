package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("suno: api key is required")

const (
	defaultBaseURL        = "https://api.sunoapi.example/api/v1"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Options configures the vendor API client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Client performs HTTP calls to the music generation vendor. Transient
// failures (timeouts, connection errors, 5xx) are retried with linear
// backoff; everything else surfaces immediately. All failures are coerced
// into domain.VendorError so callers never branch on transport types.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	logger         *infra.Logger
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if opts.MaxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:         apiKey,
		baseURL:        baseURL,
		httpClient:     httpClient,
		logger:         logger,
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
	}, nil
}

// Balance fetches the usable account balance. The vendor reports a regular
// and a bonus pool; only the sum matters for admission decisions.
func (c *Client) Balance(ctx context.Context) (domain.CreditsSnapshot, error) {
	var resp balanceResponse
	if err := c.call(ctx, http.MethodGet, "/credits", nil, &resp); err != nil {
		return domain.CreditsSnapshot{}, err
	}
	return domain.CreditsSnapshot{Available: resp.Credits + resp.ExtraCredits}, nil
}

// SubmitJob forwards a normalized generation payload and returns the
// vendor-issued job identifier.
func (c *Client) SubmitJob(ctx context.Context, req domain.GenerationRequest) (string, error) {
	payload := generateRequest{
		CustomMode:       req.CustomMode,
		Prompt:           req.DescriptionPrompt,
		Lyrics:           req.StructuredPrompt,
		StyleTags:        req.StyleTags,
		Title:            req.Title,
		InstrumentalOnly: req.InstrumentalOnly,
		ModelVersion:     req.ModelVersion,
	}
	var resp generateResponse
	if err := c.call(ctx, http.MethodPost, "/generate", payload, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", &domain.VendorError{
			Kind:    domain.FailureServerError,
			Message: "vendor accepted the job but returned no job id",
		}
	}
	return resp.JobID, nil
}

// JobStatus fetches the current clip records for a job. An empty slice means
// the vendor has not materialized any track yet; callers treat that as still
// in progress, not as an error.
func (c *Client) JobStatus(ctx context.Context, jobID string) ([]domain.TrackStatus, error) {
	path := "/query?job_id=" + url.QueryEscape(jobID)
	var resp queryResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	tracks := make([]domain.TrackStatus, 0, len(resp.Data))
	for _, clip := range resp.Data {
		tracks = append(tracks, domain.TrackStatus{
			ClipID:          clip.ClipID,
			VendorState:     clip.State,
			Title:           clip.Title,
			StyleTags:       clip.Tags,
			AudioURL:        clip.AudioURL,
			VideoURL:        clip.VideoURL,
			DurationSeconds: clip.Duration,
		})
	}
	return tracks, nil
}

// call issues one logical request, retrying transient failures up to
// maxRetries times with linear backoff. The identical request is re-built
// for every attempt so the body reader is fresh.
func (c *Client) call(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &domain.VendorError{Kind: domain.FailureClientError, Message: fmt.Sprintf("encode request: %v", err)}
		}
		body = encoded
	}

	var lastErr *domain.VendorError
	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		vErr := c.attempt(ctx, method, path, body, out)
		if vErr == nil {
			return nil
		}
		lastErr = vErr
		if !vErr.Kind.Retryable() || attempt > c.maxRetries {
			break
		}
		delay := c.retryBaseDelay * time.Duration(attempt)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("kind", string(vErr.Kind)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("suno: retrying vendor call")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &domain.VendorError{Kind: domain.FailureTimeout, Message: ctx.Err().Error()}
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) *domain.VendorError {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.VendorError{Kind: domain.FailureClientError, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyTransport(err)
		c.logger.Error().
			Str("method", method).
			Str("path", path).
			Str("kind", string(kind)).
			Err(err).
			Msg("suno: vendor call failed")
		return &domain.VendorError{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.VendorError{Kind: domain.FailureNetwork, Message: fmt.Sprintf("read response: %v", err)}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("suno: vendor call")

	if resp.StatusCode >= 400 {
		kind := classifyStatus(resp.StatusCode)
		msg := vendorMessage(raw, resp.StatusCode)
		return &domain.VendorError{Kind: kind, Message: msg, HTTPStatus: resp.StatusCode}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.VendorError{
				Kind:       domain.FailureServerError,
				Message:    fmt.Sprintf("decode response: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
	}
	return nil
}

// classifyTransport maps a transport-level failure onto exactly one
// FailureKind. Timeouts are separated from other dial/read failures so the
// retry policy and logs can tell "slow" from "unreachable".
func classifyTransport(err error) domain.FailureKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	return domain.FailureNetwork
}

// classifyStatus is the total mapping from HTTP status to FailureKind for
// statuses >= 400.
func classifyStatus(status int) domain.FailureKind {
	if status >= 500 {
		return domain.FailureServerError
	}
	return domain.FailureClientError
}

func vendorMessage(raw []byte, status int) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		if detail.Code != "" {
			return fmt.Sprintf("%s (%s)", detail.Message, detail.Code)
		}
		return detail.Message
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed != "" && len(trimmed) <= 512 {
		return fmt.Sprintf("status %d: %s", status, trimmed)
	}
	return fmt.Sprintf("status %d", status)
}
