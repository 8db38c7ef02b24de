package validation

import (
	"testing"
)

func goodMetrics() ImageQualityMetrics {
	return ImageQualityMetrics{
		Width:           1280,
		Height:          960,
		LaplacianVar:    300.0,
		AvgLuminance:    0.5,
		AvgSaturation:   0.4,
		ChannelBalance:  [3]float64{0.36, 0.33, 0.31},
		ClippedFraction: 0.02,
	}
}

func hasIssue(issues []QualityIssue, issueType string) bool {
	for _, issue := range issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

func TestNewQualityValidator(t *testing.T) {
	validator := NewQualityValidator()
	if validator == nil {
		t.Fatal("Expected non-nil quality validator")
	}

	expected := DefaultQualityThresholds().MinLaplacianVariance
	if validator.thresholds.MinLaplacianVariance != expected {
		t.Errorf("Expected MinLaplacianVariance to be %f, got %f", expected, validator.thresholds.MinLaplacianVariance)
	}
}

func TestNewQualityValidatorWithThresholds(t *testing.T) {
	custom := DefaultQualityThresholds()
	custom.MinLaplacianVariance = 500.0

	validator := NewQualityValidatorWithThresholds(custom)
	if validator.thresholds.MinLaplacianVariance != 500.0 {
		t.Errorf("Expected custom MinLaplacianVariance to be 500.0, got %f", validator.thresholds.MinLaplacianVariance)
	}

	issues := validator.Validate(goodMetrics())
	if !hasIssue(issues, "blurriness") {
		t.Errorf("Expected stricter sharpness threshold to flag blurriness, got %v", issues)
	}
}

func TestValidate_GoodPhoto(t *testing.T) {
	validator := NewQualityValidator()

	if issues := validator.Validate(goodMetrics()); len(issues) > 0 {
		t.Errorf("Expected no quality issues for a well lit sharp photo, got: %v", issues)
	}
}

func TestValidate_Issues(t *testing.T) {
	validator := NewQualityValidator()

	tests := []struct {
		name     string
		mutate   func(m *ImageQualityMetrics)
		expected string
	}{
		{"blurry", func(m *ImageQualityMetrics) { m.LaplacianVar = 5 }, "blurriness"},
		{"dark", func(m *ImageQualityMetrics) { m.AvgLuminance = 0.05 }, "low_luminance"},
		{"bright", func(m *ImageQualityMetrics) { m.AvgLuminance = 0.97 }, "high_luminance"},
		{"glare", func(m *ImageQualityMetrics) { m.ClippedFraction = 0.6 }, "overexposure"},
		{"small", func(m *ImageQualityMetrics) { m.Width, m.Height = 120, 90 }, "low_resolution"},
		{"tinted", func(m *ImageQualityMetrics) { m.ChannelBalance = [3]float64{0.8, 0.1, 0.1} }, "channel_imbalance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := goodMetrics()
			tt.mutate(&metrics)

			issues := validator.Validate(metrics)
			if !hasIssue(issues, tt.expected) {
				t.Errorf("Expected %s issue, got %v", tt.expected, issues)
			}
		})
	}
}

func TestValidate_TinyImageSkipsBlur(t *testing.T) {
	validator := NewQualityValidator()

	metrics := goodMetrics()
	metrics.Width, metrics.Height = 2, 2
	metrics.LaplacianVar = 0

	issues := validator.Validate(metrics)
	if hasIssue(issues, "blurriness") {
		t.Error("Expected blur check to be skipped for a 2x2 image")
	}
	if !hasIssue(issues, "low_resolution") {
		t.Error("Expected low_resolution for a 2x2 image")
	}
}

func TestConvertIssuesToMessages(t *testing.T) {
	validator := NewQualityValidator()

	issues := []QualityIssue{
		{Type: "blurriness", Message: "blurry", Severity: "warning"},
		{Type: "overexposure", Message: "glare", Severity: "info"},
	}

	messages := validator.ConvertIssuesToMessages(issues)
	if len(messages) != 2 || messages[0] != "blurry" || messages[1] != "glare" {
		t.Errorf("Unexpected messages: %v", messages)
	}

	if !validator.HasWarnings(issues) {
		t.Error("Expected HasWarnings to be true")
	}
	if validator.HasWarnings(issues[1:]) {
		t.Error("Expected HasWarnings to be false for info-only issues")
	}
}
