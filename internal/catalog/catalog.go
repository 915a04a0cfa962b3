// Package catalog maps weekdays to fixed workout templates.
package catalog

import "github.com/briangreenhill/voicept/internal/fitness"

type template struct {
	name      string
	exercises []fitness.Exercise
}

var (
	strengthA = template{
		name: "Full Body Strength A",
		exercises: []fitness.Exercise{
			{Name: "Squats", Sets: 3, Reps: "8-12"},
			{Name: "Bench Press", Sets: 3, Reps: "8-12"},
			{Name: "Bent Over Rows", Sets: 3, Reps: "8-12"},
			{Name: "Overhead Press", Sets: 3, Reps: "10-15"},
			{Name: "Plank", Sets: 3, Reps: "30-60s"},
		},
	}
	cardioCore = template{
		name: "Cardio & Core",
		exercises: []fitness.Exercise{
			{Name: "Running/Jogging", Sets: 1, Reps: "20-30 min"},
			{Name: "Crunches", Sets: 3, Reps: "15-20"},
			{Name: "Leg Raises", Sets: 3, Reps: "15-20"},
			{Name: "Russian Twists", Sets: 3, Reps: "15-20 per side"},
			{Name: "Bicycle Crunches", Sets: 3, Reps: "20-30"},
		},
	}
	strengthB = template{
		name: "Full Body Strength B",
		exercises: []fitness.Exercise{
			{Name: "Deadlifts", Sets: 1, Reps: "5"},
			{Name: "Pull-ups/Lat Pulldowns", Sets: 3, Reps: "As many as possible / 8-12"},
			{Name: "Dumbbell Lunges", Sets: 3, Reps: "10-12 per leg"},
			{Name: "Push-ups", Sets: 3, Reps: "As many as possible"},
			{Name: "Face Pulls", Sets: 3, Reps: "15-20"},
		},
	}
	rest = template{
		name: fitness.RestDayName,
		exercises: []fitness.Exercise{
			{Name: "Active Recovery / Light Walk", Sets: 1, Reps: "20-30 min"},
		},
	}
)

// rotation is indexed Monday=0.
var rotation = [fitness.DaysPerWeek]*template{
	&strengthA, &cardioCore, &strengthB, &rest, &strengthA, &cardioCore, &strengthB,
}

// Lookup returns the workout for weekday index i (Monday=0). Indices outside
// 0..6 wrap around the week, so every int yields a workout.
func Lookup(i int) fitness.DailyWorkout {
	i %= fitness.DaysPerWeek
	if i < 0 {
		i += fitness.DaysPerWeek
	}
	t := rotation[i]

	exercises := make([]fitness.Exercise, len(t.exercises))
	copy(exercises, t.exercises)
	return fitness.DailyWorkout{
		Day:         fitness.Weekdays[i],
		WorkoutName: t.name,
		Exercises:   exercises,
	}
}

// Program builds the weekly program for a profile. The rotation is fixed, so
// the profile does not change the result today.
func Program(_ fitness.HealthProfile) fitness.WorkoutProgram {
	program := make(fitness.WorkoutProgram, fitness.DaysPerWeek)
	for i := range program {
		program[i] = Lookup(i)
	}
	return program
}
