package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/voicept/internal/fitness"
)

func TestLookupRotation(t *testing.T) {
	want := []string{
		"Full Body Strength A",
		"Cardio & Core",
		"Full Body Strength B",
		fitness.RestDayName,
		"Full Body Strength A",
		"Cardio & Core",
		"Full Body Strength B",
	}

	for i := 0; i < fitness.DaysPerWeek; i++ {
		d := Lookup(i)
		assert.NotEmpty(t, d.WorkoutName)
		assert.Equal(t, want[i], d.WorkoutName, "day %d", i)
		assert.Equal(t, fitness.Weekdays[i], d.Day)
		assert.Equal(t, i == 3, d.IsRest(), "day %d", i)
		assert.NotEmpty(t, d.Exercises)
	}
}

func TestLookupWraps(t *testing.T) {
	assert.Equal(t, Lookup(0), Lookup(7))
	assert.Equal(t, Lookup(6), Lookup(-1))
}

func TestLookupReturnsCopies(t *testing.T) {
	d := Lookup(0)
	d.Exercises[0].Name = "changed"

	assert.Equal(t, "Squats", Lookup(0).Exercises[0].Name)
}

func TestProgram(t *testing.T) {
	p := Program(fitness.HealthProfile{})
	require.True(t, p.Complete())

	for i, d := range p {
		assert.Equal(t, Lookup(i), d)
	}
	rest, ok := p.Day(3)
	require.True(t, ok)
	assert.Equal(t, "Active Recovery / Light Walk", rest.Exercises[0].Name)
}
