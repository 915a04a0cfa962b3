// Package fitness defines the health profile and workout program model.
package fitness

import (
	"strconv"
	"strings"
)

// RestDayName marks a day with no guidance.
const RestDayName = "Rest Day"

// DaysPerWeek is the fixed length of a WorkoutProgram.
const DaysPerWeek = 7

// Weekdays lists day labels Monday first.
var Weekdays = [DaysPerWeek]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Exercise is a single movement with its set and rep scheme.
// Reps is free-form ("8-12", "AMRAP", "30-60s").
type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
}

// DailyWorkout is one day of a program.
type DailyWorkout struct {
	Day         string     `json:"day"`
	WorkoutName string     `json:"workoutName"`
	Exercises   []Exercise `json:"exercises"`
}

// IsRest reports whether the day is a rest day.
func (d DailyWorkout) IsRest() bool {
	return d.WorkoutName == RestDayName
}

// Exercise returns the exercise at index i.
func (d DailyWorkout) Exercise(i int) (Exercise, bool) {
	if i < 0 || i >= len(d.Exercises) {
		return Exercise{}, false
	}
	return d.Exercises[i], true
}

// WorkoutProgram is seven DailyWorkouts, Monday through Sunday.
type WorkoutProgram []DailyWorkout

// Complete reports whether the program has exactly one entry per weekday.
func (p WorkoutProgram) Complete() bool {
	return len(p) == DaysPerWeek
}

// Day returns the workout at weekday index i.
func (p WorkoutProgram) Day(i int) (DailyWorkout, bool) {
	if i < 0 || i >= len(p) {
		return DailyWorkout{}, false
	}
	return p[i], true
}

// ParseDay accepts a 0-based index ("0".."6") or a weekday name in any case.
func ParseDay(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n < DaysPerWeek {
			return n, true
		}
		return 0, false
	}
	for i, name := range Weekdays {
		if strings.EqualFold(name, s) || strings.EqualFold(name[:3], s) {
			return i, true
		}
	}
	return 0, false
}
