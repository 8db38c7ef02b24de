package strategy

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// DefaultPreset is used when neither a preset nor an instruction is given
const DefaultPreset = "calories"

// PromptStrategy supplies the instruction sent alongside a meal photo
type PromptStrategy interface {
	Name() string
	Description() string
	Instruction() string
}

type preset struct {
	name        string
	description string
	instruction string
}

func (p preset) Name() string        { return p.name }
func (p preset) Description() string { return p.description }
func (p preset) Instruction() string { return p.instruction }

// CaloriesStrategy is the nutritionist prompt: one line per item plus a total
func CaloriesStrategy() PromptStrategy {
	return preset{
		name:        "calories",
		description: "Per-item calorie estimate with a total",
		instruction: "You are a professional nutritionist. Identify each visible food item in the image. " +
			"Estimate approximate calories per item and provide a total in this format:\n" +
			"1) Item — ~calories\n" +
			"2) Item — ~calories\n" +
			"Total — ~calories\n" +
			"If uncertain, state brief assumptions.",
	}
}

// MacrosStrategy adds protein, carbohydrate and fat estimates
func MacrosStrategy() PromptStrategy {
	return preset{
		name:        "macros",
		description: "Calories plus protein, carbs and fat per item",
		instruction: "You are a professional nutritionist. Identify each visible food item in the image. " +
			"For each item estimate calories, protein, carbohydrates and fat in this format:\n" +
			"1) Item — ~calories kcal | P ~g | C ~g | F ~g\n" +
			"Total — ~calories kcal | P ~g | C ~g | F ~g\n" +
			"If uncertain, state brief assumptions.",
	}
}

// PortionsStrategy focuses on portion sizes before calories
func PortionsStrategy() PromptStrategy {
	return preset{
		name:        "portions",
		description: "Estimated portion size and calories per item",
		instruction: "You are a professional nutritionist. Identify each visible food item in the image " +
			"and estimate its portion size in grams or common household measures, then its calories:\n" +
			"1) Item — ~portion — ~calories\n" +
			"Total — ~calories\n" +
			"Use the plate and utensils for scale. If uncertain, state brief assumptions.",
	}
}

// CustomStrategy wraps a caller supplied instruction
func CustomStrategy(instruction string) PromptStrategy {
	return preset{
		name:        "custom",
		description: "Caller supplied instruction",
		instruction: instruction,
	}
}

// Registry holds the known presets by name
type Registry struct {
	presets map[string]PromptStrategy
}

// NewRegistry creates a registry with the built-in presets
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]PromptStrategy)}
	for _, s := range []PromptStrategy{CaloriesStrategy(), MacrosStrategy(), PortionsStrategy()} {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a preset
func (r *Registry) Register(s PromptStrategy) {
	r.presets[strings.ToLower(s.Name())] = s
}

// Get looks up a preset by name, case-insensitively
func (r *Registry) Get(name string) (PromptStrategy, bool) {
	s, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names returns the preset names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptions maps each preset name to its one-line description
func (r *Registry) Descriptions() map[string]string {
	out := make(map[string]string, len(r.presets))
	for name, s := range r.presets {
		out[name] = s.Description()
	}
	return out
}

// Resolve picks the strategy for a request. A non-blank instruction wins;
// otherwise the named preset, or the default when name is empty.
func (r *Registry) Resolve(name, instruction string) (PromptStrategy, error) {
	if strings.TrimSpace(instruction) != "" {
		return CustomStrategy(instruction), nil
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultPreset
	}
	s, ok := r.Get(name)
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown preset %q (available: %s)", name, strings.Join(r.Names(), ", ")), nil)
	}
	return s, nil
}
