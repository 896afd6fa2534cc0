package generation

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

// VendorClient is the slice of the provider API the orchestration needs.
// *suno.Client satisfies it; tests inject counting stubs.
type VendorClient interface {
	Balance(ctx context.Context) (domain.CreditsSnapshot, error)
	SubmitJob(ctx context.Context, req domain.GenerationRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) ([]domain.TrackStatus, error)
}

// Options configures the generation service.
type Options struct {
	Vendor VendorClient
	Policy PollPolicy
	Logger *infra.Logger
	// Sleep overrides the inter-poll wait; tests use it to run the loop
	// without real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Service orchestrates the submit-then-poll workflow against the vendor.
// Each call to Generate owns its own polling loop for the lifetime of the
// originating request; there is no shared job state between requests.
type Service struct {
	vendor VendorClient
	policy PollPolicy
	logger *infra.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService wires a service with defaults for anything unset.
func NewService(opts Options) (*Service, error) {
	if opts.Vendor == nil {
		return nil, errors.New("generation: vendor client is required")
	}
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultPollPolicy()
	}
	if policy.MaxConsecutiveFailures <= 0 {
		policy.MaxConsecutiveFailures = DefaultPollPolicy().MaxConsecutiveFailures
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	return &Service{
		vendor: opts.Vendor,
		policy: policy,
		logger: logger,
		sleep:  sleep,
	}, nil
}

// Submit validates the request, runs the best-effort balance pre-flight and
// forwards the job to the vendor. A failing balance check never blocks
// submission (fail-open); a successful check reporting a non-positive balance
// rejects before any submit call is made.
func (s *Service) Submit(ctx context.Context, req domain.GenerationRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if snap, err := s.vendor.Balance(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("generation: balance pre-flight failed, proceeding anyway")
	} else if snap.Available <= 0 {
		return nil, domain.ErrInsufficientCredits
	}

	jobID, err := s.vendor.SubmitJob(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("model_version", req.ModelVersion).
		Bool("custom_mode", req.CustomMode).
		Bool("instrumental", req.InstrumentalOnly).
		Msg("generation: job submitted")

	return &domain.Job{
		ID:          jobID,
		SubmittedAt: time.Now(),
		State:       domain.JobStatePending,
	}, nil
}

// Generate performs submission plus the full polling loop and returns either
// a completed result or a typed failure.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	job, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.PollUntilTerminal(ctx, job)
}

// CheckStatus is the degenerate single-shot status check: one vendor call,
// no loop. The returned state reflects only this snapshot.
func (s *Service) CheckStatus(ctx context.Context, jobID string) (domain.JobState, []domain.TrackStatus, error) {
	tracks, err := s.vendor.JobStatus(ctx, jobID)
	if err != nil {
		return "", nil, err
	}
	state, _ := evaluate(tracks)
	return state, tracks, nil
}

// Balance exposes the credits snapshot passthrough.
func (s *Service) Balance(ctx context.Context) (domain.CreditsSnapshot, error) {
	return s.vendor.Balance(ctx)
}
