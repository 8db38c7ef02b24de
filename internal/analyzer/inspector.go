package analyzer

import (
	"image"
	"image/draw"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/nutrivision-go/internal/logger"
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// photoInspector computes metrics and turns them into hints
type photoInspector struct {
	calculator MetricsCalculator
	validator  *validation.QualityValidator
}

// NewPhotoInspector creates an inspector with the default thresholds
func NewPhotoInspector() PhotoInspector {
	return NewPhotoInspectorWithValidator(validation.NewQualityValidator())
}

// NewPhotoInspectorWithValidator creates an inspector with a custom validator
func NewPhotoInspectorWithValidator(validator *validation.QualityValidator) PhotoInspector {
	return &photoInspector{
		calculator: NewMetricsCalculator(),
		validator:  validator,
	}
}

// Inspect measures img and returns any quality hints. A nil image yields an empty report.
func (pi *photoInspector) Inspect(img image.Image) QualityReport {
	if img == nil {
		return QualityReport{}
	}

	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)

	basic := pi.calculator.CalculateBasicMetrics(img)
	qm := validation.ImageQualityMetrics{
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		LaplacianVar:    pi.calculator.CalculateLaplacianVariance(gray),
		AvgLuminance:    basic.avgLuminance,
		AvgSaturation:   basic.avgSaturation,
		ChannelBalance:  normalizedBalance(basic),
		ClippedFraction: pi.calculator.CalculateClippedFraction(gray),
	}

	report := QualityReport{
		Metrics: qm,
		Issues:  pi.validator.Validate(qm),
	}

	if report.HasIssues() {
		logger.WithFields(logrus.Fields{
			"width":         qm.Width,
			"height":        qm.Height,
			"laplacian_var": qm.LaplacianVar,
			"luminance":     qm.AvgLuminance,
			"issues":        len(report.Issues),
		}).Debug("Photo quality hints raised")
	}

	return report
}

// normalizedBalance expresses channel averages as shares of their sum, so a
// neutral photo is roughly one third each regardless of brightness
func normalizedBalance(m metrics) [3]float64 {
	sum := m.avgR + m.avgG + m.avgB
	if sum == 0 {
		return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}
	return [3]float64{m.avgR / sum, m.avgG / sum, m.avgB / sum}
}
