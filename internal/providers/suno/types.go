package suno

// Wire types for the vendor API. The vendor reports two credit pools; only
// their sum is meaningful to callers.

type balanceResponse struct {
	Credits      int `json:"credits"`
	ExtraCredits int `json:"extra_credits"`
}

type generateRequest struct {
	CustomMode       bool   `json:"custom_mode"`
	Prompt           string `json:"prompt,omitempty"`
	Lyrics           string `json:"lyrics,omitempty"`
	StyleTags        string `json:"style_tags,omitempty"`
	Title            string `json:"title,omitempty"`
	InstrumentalOnly bool   `json:"instrumental_only"`
	ModelVersion     string `json:"model_version"`
}

type generateResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

type clipRecord struct {
	ClipID   string  `json:"clip_id"`
	State    string  `json:"state"`
	Title    string  `json:"title"`
	Tags     string  `json:"tags"`
	AudioURL string  `json:"audio_url"`
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
}

type queryResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    []clipRecord `json:"data"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
