package analyzer

import (
	"github.com/anime-shed/nutrivision-go/pkg/validation"
)

// QualityReport is what the inspector found about a photo. It never blocks analysis.
type QualityReport struct {
	Metrics validation.ImageQualityMetrics `json:"-"`
	Issues  []validation.QualityIssue      `json:"issues"`
}

// HasIssues reports whether any hint was raised
func (r QualityReport) HasIssues() bool {
	return len(r.Issues) > 0
}

// metrics holds internal calculation results
type metrics struct {
	avgLuminance, avgSaturation float64
	avgR, avgG, avgB            float64
}
