package models

// AnalyzeURLRequest asks for analysis of a photo that lives at a URL or in object storage
type AnalyzeURLRequest struct {
	URL         string   `json:"url" binding:"required"`
	Instruction string   `json:"instruction,omitempty"`
	Preset      string   `json:"preset,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ErrorResponse represents an error response outside the analysis envelope
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string   `json:"status"`
	Model   string   `json:"model"`
	Sources []string `json:"sources"`
	Presets []string `json:"presets"`

	PresetDescriptions map[string]string `json:"preset_descriptions"`
}

// StatsResponse exposes the in-process analysis counters
type StatsResponse struct {
	Total           int64            `json:"total"`
	Succeeded       int64            `json:"succeeded"`
	Failed          int64            `json:"failed"`
	FailuresByType  map[string]int64 `json:"failures_by_type"`
	AverageDuration float64          `json:"average_duration_ms"`
	QualityWarnings int64            `json:"quality_warnings"`
}
