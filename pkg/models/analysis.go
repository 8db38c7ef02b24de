package models

import (
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// AnalysisResponse is the envelope returned for every meal analysis, successful or not.
// Result always carries display text; on failure it is the rendered error.
type AnalysisResponse struct {
	RequestID     string                    `json:"request_id,omitempty"`
	Result        string                    `json:"result"`
	Success       bool                      `json:"success"`
	Error         *ErrorBody                `json:"error,omitempty"`
	Preset        string                    `json:"preset,omitempty"`
	Model         string                    `json:"model,omitempty"`
	Temperature   float64                   `json:"temperature"`
	DurationMs    int64                     `json:"duration_ms"`
	Source        string                    `json:"source,omitempty"`
	Image         *ImageInfo                `json:"image,omitempty"`
	QualityIssues []validation.QualityIssue `json:"quality_issues,omitempty"`
	Usage         *TokenUsage               `json:"usage,omitempty"`

	// StatusCode is the HTTP status the envelope should be served with
	StatusCode int `json:"-"`
}

// ErrorBody describes why an analysis failed
type ErrorBody struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	Details        string `json:"details,omitempty"`
}

// ImageInfo contains what was learned about the submitted photo
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"`
}

// TokenUsage mirrors the usage block reported by the inference endpoint
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
