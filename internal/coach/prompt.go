// Package coach builds the nutrition-coaching system prompt, optionally
// personalized with the user's stored dietary preferences.
package coach

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultSystemPrompt is the base instruction set for the assistant.
const DefaultSystemPrompt = `You are NutriWhisper, an expert AI nutritionist with a calm, supportive approach.
- You provide science-based nutrition advice, healthy eating tips, and dietary recommendations.
- Keep responses concise and helpful, focusing on evidence-based information.
- When appropriate, suggest healthy alternatives or recipes.
- Be empathetic but professional, avoiding medical diagnoses.
- If you don't know something, admit it clearly rather than guessing.
- Don't provide specific medical advice - suggest consulting with a healthcare provider when appropriate.`

// Preferences is the user's stored dietary profile.
type Preferences struct {
	NutritionGoals     string   `json:"nutrition_goals"`
	DietaryPreferences []string `json:"dietary_preferences"`
	CoachingType       string   `json:"coaching_type"`
}

// PersonalizedPrompt appends the user's profile to the base prompt.
// A nil profile returns the base prompt unchanged.
func PersonalizedPrompt(base string, prefs *Preferences) string {
	if prefs == nil {
		return base
	}
	return fmt.Sprintf(`%s

This user has shared the following nutrition information:
- Nutrition goals: %s
- Dietary preferences: %s
- Preferred coaching type: %s

Tailor your advice based on this information while remaining empathetic and helpful.`,
		base,
		prefs.NutritionGoals,
		strings.Join(prefs.DietaryPreferences, ", "),
		prefs.CoachingType,
	)
}

// LoadPreferences reads a preferences profile from a JSON file. An empty
// path returns nil without error.
func LoadPreferences(path string) (*Preferences, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	return &prefs, nil
}
