// Package prompt builds guidance prompts from workouts and health profiles
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/fitness"
	"github.com/briangreenhill/voicept/internal/guidance"
)

// FallbackMotivation is used when the profile has no goals.
const FallbackMotivation = "User wants to get fit and healthy."

// FormatForWholeDay describes every exercise of a day.
func FormatForWholeDay(workout fitness.DailyWorkout) string {
	parts := make([]string, 0, len(workout.Exercises))
	for _, ex := range workout.Exercises {
		parts = append(parts, fmt.Sprintf("%s: %d sets of %s reps", ex.Name, ex.Sets, ex.Reps))
	}
	return fmt.Sprintf("Today's workout (%s - %s): %s.", workout.Day, workout.WorkoutName, strings.Join(parts, "; "))
}

// FormatForExercise asks for form, breathing and motivation guidance on one exercise.
func FormatForExercise(ex fitness.Exercise) string {
	return fmt.Sprintf("The user is focusing on the exercise: %s (%d sets of %s reps). "+
		"Provide detailed guidance on form, breathing, and motivation for this specific exercise.",
		ex.Name, ex.Sets, ex.Reps)
}

// MotivationText returns the profile goals verbatim, or FallbackMotivation.
func MotivationText(profile *fitness.HealthProfile) string {
	if profile == nil || profile.FitnessGoals == "" {
		return FallbackMotivation
	}
	return profile.FitnessGoals
}

// Build formats the prompt for a whole day, or for one exercise when ex is set.
func Build(workout fitness.DailyWorkout, ex *fitness.Exercise, profile *fitness.HealthProfile) guidance.Prompt {
	desc := FormatForWholeDay(workout)
	if ex != nil {
		desc = FormatForExercise(*ex)
	}
	return guidance.Prompt{
		WorkoutDescription: desc,
		UserMotivation:     MotivationText(profile),
	}
}

// Generator loads trainer instructions, preferring a custom file when set.
type Generator struct {
	customPath string
	logger     zerolog.Logger
}

// NewGenerator creates a new instructions generator. An empty path means the
// built-in instructions.
func NewGenerator(customPath string, logger zerolog.Logger) *Generator {
	return &Generator{customPath: customPath, logger: logger}
}

// Generate returns the instructions content (custom or default)
func (g *Generator) Generate() (string, error) {
	if g.customPath == "" {
		return GetDefault(), nil
	}
	data, err := os.ReadFile(g.customPath)
	if err != nil {
		return "", fmt.Errorf("read instructions %s: %w", g.customPath, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("instructions file %s is empty", g.customPath)
	}
	return text, nil
}

// GenerateWithFallback returns the instructions, falling back to the default on error
func (g *Generator) GenerateWithFallback() string {
	text, err := g.Generate()
	if err != nil {
		g.logger.Warn().Err(err).Msg("using default trainer instructions")
		return GetDefault()
	}
	return text
}
