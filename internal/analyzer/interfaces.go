package analyzer

import "image"

// PhotoInspector produces advisory quality hints for a meal photo
type PhotoInspector interface {
	Inspect(img image.Image) QualityReport
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	CalculateBasicMetrics(img image.Image) metrics
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateClippedFraction(gray *image.Gray) float64
}
