package validation

import (
	"math"
)

// QualityThresholds defines the limits used to flag meal photos that may confuse the model
type QualityThresholds struct {
	// Sharpness
	MinLaplacianVariance float64

	// Exposure, on a 0..1 scale
	MinLuminance        float64
	MaxLuminance        float64
	MaxClippedFraction  float64
	MaxChannelImbalance float64

	// Resolution
	MinWidth  int
	MinHeight int
}

// DefaultQualityThresholds returns thresholds tuned for plates photographed on a phone
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 40.0, // food surfaces are smoother than documents
		MinLuminance:         0.15,
		MaxLuminance:         0.92,
		MaxClippedFraction:   0.25,
		MaxChannelImbalance:  0.35,
		MinWidth:             224,
		MinHeight:            224,
	}
}

// QualityValidator turns photo metrics into advisory issues
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "warning" or "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageQualityMetrics represents the metrics needed for quality validation
type ImageQualityMetrics struct {
	Width           int
	Height          int
	LaplacianVar    float64
	AvgLuminance    float64
	AvgSaturation   float64
	ChannelBalance  [3]float64
	ClippedFraction float64 // share of pixels at or near full white
}

// Validate returns every issue found; an empty slice means the photo looks fine
func (qv *QualityValidator) Validate(metrics ImageQualityMetrics) []QualityIssue {
	var issues []QualityIssue

	// 1. Resolution
	if metrics.Width < qv.thresholds.MinWidth || metrics.Height < qv.thresholds.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     "Photo is very small. Portions may be hard to estimate.",
			Severity:    "warning",
			ActualValue: float64(min(metrics.Width, metrics.Height)),
			Threshold:   float64(min(qv.thresholds.MinWidth, qv.thresholds.MinHeight)),
		})
	}

	// 2. Blurriness; skipped for tiny images where the kernel says little
	if metrics.Width >= 3 && metrics.Height >= 3 && metrics.LaplacianVar < qv.thresholds.MinLaplacianVariance {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     "Photo looks blurry. Hold the camera steady for a better estimate.",
			Severity:    "warning",
			ActualValue: metrics.LaplacianVar,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	}

	// 3. Exposure
	if metrics.AvgLuminance <= qv.thresholds.MinLuminance {
		issues = append(issues, QualityIssue{
			Type:        "low_luminance",
			Message:     "Photo is very dark. Use more light.",
			Severity:    "warning",
			ActualValue: metrics.AvgLuminance,
			Threshold:   qv.thresholds.MinLuminance,
		})
	} else if metrics.AvgLuminance >= qv.thresholds.MaxLuminance {
		issues = append(issues, QualityIssue{
			Type:        "high_luminance",
			Message:     "Photo is too bright. Avoid direct flash on the plate.",
			Severity:    "warning",
			ActualValue: metrics.AvgLuminance,
			Threshold:   qv.thresholds.MaxLuminance,
		})
	}
	if metrics.ClippedFraction > qv.thresholds.MaxClippedFraction {
		issues = append(issues, QualityIssue{
			Type:        "overexposure",
			Message:     "Large areas are washed out by glare.",
			Severity:    "info",
			ActualValue: metrics.ClippedFraction,
			Threshold:   qv.thresholds.MaxClippedFraction,
		})
	}

	// 4. Colour cast from filters or coloured lights
	if qv.channelSpread(metrics.ChannelBalance) >= qv.thresholds.MaxChannelImbalance {
		issues = append(issues, QualityIssue{
			Type:      "channel_imbalance",
			Message:   "Colours look tinted. Filters can make foods hard to recognise.",
			Severity:  "info",
			Threshold: qv.thresholds.MaxChannelImbalance,
		})
	}

	return issues
}

func (qv *QualityValidator) channelSpread(channels [3]float64) float64 {
	max := math.Max(channels[0], math.Max(channels[1], channels[2]))
	min := math.Min(channels[0], math.Min(channels[1], channels[2]))
	return max - min
}

// ConvertIssuesToMessages converts quality issues to plain messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasWarnings checks if any issue is worth showing prominently
func (qv *QualityValidator) HasWarnings(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "warning" {
			return true
		}
	}
	return false
}
