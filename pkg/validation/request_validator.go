package validation

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
)

// ValidateInstruction requires a non-blank instruction
func ValidateInstruction(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return apperrors.NewValidationError("instruction cannot be empty", nil)
	}
	return nil
}

// ValidateTemperature rejects values outside [0,1]
func ValidateTemperature(temperature float64) error {
	if math.IsNaN(temperature) || temperature < MinTemperature || temperature > MaxTemperature {
		return apperrors.NewValidationError(
			fmt.Sprintf("temperature must be within [%g,%g] (got %g)", MinTemperature, MaxTemperature, temperature), nil)
	}
	return nil
}

// ClampTemperature pulls a value into [0,1]; NaN becomes 0
func ClampTemperature(temperature float64) float64 {
	switch {
	case math.IsNaN(temperature), temperature < MinTemperature:
		return MinTemperature
	case temperature > MaxTemperature:
		return MaxTemperature
	default:
		return temperature
	}
}
