package domain

import "time"

// JobState enumerates the lifecycle states of a generation job.
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	JobStateTimedOut   JobState = "timed_out"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut:
		return true
	}
	return false
}

// GenerationRequest captures the caller's intent for one track generation.
// In custom mode the caller supplies lyrics/structure directly; otherwise
// DescriptionPrompt drives the whole generation.
type GenerationRequest struct {
	CustomMode        bool
	DescriptionPrompt string
	StructuredPrompt  string
	StyleTags         string
	Title             string
	InstrumentalOnly  bool
	ModelVersion      string
}

// Validate enforces the request invariants before any vendor call is made.
func (r GenerationRequest) Validate() error {
	if r.ModelVersion == "" {
		return &ValidationError{Field: "model_version", Reason: "model version is required"}
	}
	if !r.CustomMode && r.DescriptionPrompt == "" {
		return &ValidationError{Field: "prompt", Reason: "description prompt is required when custom mode is off"}
	}
	return nil
}

// Job tracks one in-flight generation. It lives only in the memory of the
// request that created it; once a terminal state is returned to the caller
// the job is discarded.
type Job struct {
	ID           string
	SubmittedAt  time.Time
	AttemptsMade int
	State        JobState
}

// GenerationResult is produced only when a job completes. AudioURL is always
// non-empty; the poller refuses to build a result without it.
type GenerationResult struct {
	TrackID         string
	Title           string
	AudioURL        string
	VideoURL        string
	StyleTags       string
	DurationSeconds float64
}

// TrackStatus is one normalized clip row from a vendor status response.
// VendorState carries the raw vendor vocabulary; mapping to JobState is the
// poller's job.
type TrackStatus struct {
	ClipID          string
	VendorState     string
	Title           string
	StyleTags       string
	AudioURL        string
	VideoURL        string
	DurationSeconds float64
}

// CreditsSnapshot is the usable account balance at one point in time. It is
// fetched fresh on every check and never cached across requests.
type CreditsSnapshot struct {
	Available int
}
