package generation

import (
	"context"
	"time"

	"tuneforge/internal/domain"
)

// PollPolicy bounds the polling loop. Checks are front-loaded because most
// jobs finish quickly; later tiers back off so long-tail jobs do not hammer
// the vendor. With the defaults the worst case is 20x1s + 20x2s + 20x3s.
type PollPolicy struct {
	MaxAttempts            int
	TierSize               int
	TierDelays             []time.Duration
	MaxConsecutiveFailures int
}

// DefaultPollPolicy returns the production cadence.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts:            60,
		TierSize:               20,
		TierDelays:             []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		MaxConsecutiveFailures: 3,
	}
}

// delayFor returns the wait before the given 1-based attempt's status check.
func (p PollPolicy) delayFor(attempt int) time.Duration {
	if len(p.TierDelays) == 0 {
		return time.Second
	}
	tier := 0
	if p.TierSize > 0 {
		tier = (attempt - 1) / p.TierSize
	}
	if tier >= len(p.TierDelays) {
		tier = len(p.TierDelays) - 1
	}
	return p.TierDelays[tier]
}

// mapVendorState is the total mapping from the vendor's status vocabulary
// onto the closed JobState set. Unknown values stay Processing so new vendor
// statuses fail safe instead of crashing the loop.
func mapVendorState(state string) domain.JobState {
	switch state {
	case "succeeded":
		return domain.JobStateCompleted
	case "failed":
		return domain.JobStateFailed
	default:
		return domain.JobStateProcessing
	}
}

// PollUntilTerminal drives a submitted job to a terminal state. Status checks
// are strictly sequential; the loop sleeps between them and aborts when the
// caller's context is cancelled. Transient check failures are tolerated up to
// MaxConsecutiveFailures in a row; the counter resets on any successful check.
func (s *Service) PollUntilTerminal(ctx context.Context, job *domain.Job) (*domain.GenerationResult, error) {
	policy := s.policy
	consecutiveFailures := 0

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		job.AttemptsMade = attempt
		tracks, err := s.vendor.JobStatus(ctx, job.ID)
		if err != nil {
			consecutiveFailures++
			s.logger.Warn().
				Str("job_id", job.ID).
				Int("attempt", attempt).
				Int("consecutive_failures", consecutiveFailures).
				Err(err).
				Msg("generation: status check failed")
			if consecutiveFailures >= policy.MaxConsecutiveFailures {
				return nil, err
			}
		} else {
			consecutiveFailures = 0

			state, result := evaluate(tracks)
			if !job.State.IsTerminal() {
				job.State = state
			}
			switch state {
			case domain.JobStateCompleted:
				s.logger.Info().
					Str("job_id", job.ID).
					Int("attempts", attempt).
					Str("track_id", result.TrackID).
					Msg("generation: completed")
				return result, nil
			case domain.JobStateFailed:
				s.logger.Info().
					Str("job_id", job.ID).
					Int("attempts", attempt).
					Msg("generation: vendor reported failure")
				return nil, &domain.GenerationFailedError{JobID: job.ID}
			}
		}

		if attempt < policy.MaxAttempts {
			if err := s.sleep(ctx, policy.delayFor(attempt)); err != nil {
				return nil, err
			}
		}
	}

	job.State = domain.JobStateTimedOut
	s.logger.Warn().
		Str("job_id", job.ID).
		Int("attempts", policy.MaxAttempts).
		Msg("generation: polling budget exhausted")
	return nil, &domain.GenerationTimedOutError{JobID: job.ID, Attempts: policy.MaxAttempts}
}

// evaluate folds the clip records of one status response into a single loop
// decision. No clip rows yet means the vendor has not materialized the job,
// still in progress. A vendor "succeeded" without an audio URL is treated as
// not yet ready: the result would be missing mandatory data, so polling
// continues.
func evaluate(tracks []domain.TrackStatus) (domain.JobState, *domain.GenerationResult) {
	if len(tracks) == 0 {
		return domain.JobStateProcessing, nil
	}
	for _, track := range tracks {
		switch mapVendorState(track.VendorState) {
		case domain.JobStateCompleted:
			if track.AudioURL == "" {
				continue
			}
			return domain.JobStateCompleted, &domain.GenerationResult{
				TrackID:         track.ClipID,
				Title:           track.Title,
				AudioURL:        track.AudioURL,
				VideoURL:        track.VideoURL,
				StyleTags:       track.StyleTags,
				DurationSeconds: track.DurationSeconds,
			}
		case domain.JobStateFailed:
			return domain.JobStateFailed, nil
		}
	}
	return domain.JobStateProcessing, nil
}

// sleepWithContext is the default sleeper: a timed wait that yields to the
// scheduler and honors cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
