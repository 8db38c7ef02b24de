package strategy

import (
	"strings"
	"testing"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name        string
		preset      string
		instruction string
		expected    string
	}{
		{"default preset", "", "", "calories"},
		{"named preset", "macros", "", "macros"},
		{"case insensitive", " Portions ", "", "portions"},
		{"instruction wins", "macros", "Only count the dessert.", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := registry.Resolve(tt.preset, tt.instruction)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if s.Name() != tt.expected {
				t.Errorf("Expected strategy %s, got %s", tt.expected, s.Name())
			}
			if strings.TrimSpace(s.Instruction()) == "" {
				t.Error("Expected non-empty instruction")
			}
		})
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	_, err := NewRegistry().Resolve("keto", "")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "calories, macros, portions") {
		t.Errorf("Expected available presets in message, got %v", err)
	}
}

func TestRegistry_Descriptions(t *testing.T) {
	r := NewRegistry()
	r.Register(CustomStrategy("Only the soup"))

	descriptions := r.Descriptions()
	if len(descriptions) != 4 {
		t.Fatalf("Expected 4 descriptions, got %v", descriptions)
	}
	if descriptions["macros"] != "Calories plus protein, carbs and fat per item" {
		t.Errorf("Unexpected macros description %q", descriptions["macros"])
	}
	if descriptions["custom"] != "Caller supplied instruction" {
		t.Errorf("Unexpected custom description %q", descriptions["custom"])
	}
}

func TestCaloriesStrategy_Format(t *testing.T) {
	instruction := CaloriesStrategy().Instruction()

	for _, fragment := range []string{"professional nutritionist", "1) Item — ~calories", "Total — ~calories", "brief assumptions"} {
		if !strings.Contains(instruction, fragment) {
			t.Errorf("Expected instruction to contain %q", fragment)
		}
	}
}

func TestCustomStrategy(t *testing.T) {
	s := CustomStrategy("Estimate calories for the soup only.")
	if s.Instruction() != "Estimate calories for the soup only." {
		t.Errorf("Expected instruction to be kept verbatim, got %q", s.Instruction())
	}

	registry := NewRegistry()
	registry.Register(s)
	if _, ok := registry.Get("custom"); !ok {
		t.Error("Expected registered strategy to be retrievable")
	}
}
