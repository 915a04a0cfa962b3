package fitness

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProfileInput {
	return ProfileInput{
		Height:                 180,
		Weight:                 81,
		WaistCircumference:     90,
		DiastolicBloodPressure: 80,
		SystolicBloodPressure:  120,
		FitnessGoals:           "Build strength and lose some fat",
	}
}

func ptr(v float64) *float64 { return &v }

func TestNewHealthProfileDerivedMetrics(t *testing.T) {
	p, err := NewHealthProfile(validInput())
	require.NoError(t, err)

	assert.InDelta(t, 25.0, p.BMI, 0.0001)
	assert.InDelta(t, 0.5, p.WaistToHeightRatio, 0.0001)
	assert.Equal(t, "Build strength and lose some fat", p.FitnessGoals)
}

func TestDeriveZeroHeight(t *testing.T) {
	in := validInput()
	in.Height = 0

	p := Derive(in)
	assert.Zero(t, p.BMI)
	assert.Zero(t, p.WaistToHeightRatio)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProfileInput)
		field  string
	}{
		{"negative height", func(in *ProfileInput) { in.Height = -1 }, "height"},
		{"zero weight", func(in *ProfileInput) { in.Weight = 0 }, "weight"},
		{"zero waist", func(in *ProfileInput) { in.WaistCircumference = 0 }, "waistCircumference"},
		{"fractional diastolic", func(in *ProfileInput) { in.DiastolicBloodPressure = 80.5 }, "diastolicBloodPressure"},
		{"negative systolic", func(in *ProfileInput) { in.SystolicBloodPressure = -120 }, "systolicBloodPressure"},
		{"body fat over 100", func(in *ProfileInput) { in.BodyFatPercentage = ptr(101) }, "bodyFatPercentage"},
		{"zero left thigh", func(in *ProfileInput) { in.LeftThighCircumference = ptr(0) }, "leftThighCircumference"},
		{"negative right thigh", func(in *ProfileInput) { in.RightThighCircumference = ptr(-3) }, "rightThighCircumference"},
		{"short goals", func(in *ProfileInput) { in.FitnessGoals = "get fit" }, "fitnessGoals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			err := in.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProfile))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestValidateOptionalFields(t *testing.T) {
	in := validInput()
	in.BodyFatPercentage = ptr(0)
	in.LeftThighCircumference = ptr(55)
	in.ShuttleRunCount = ptr(40)

	assert.NoError(t, in.Validate())
}

func TestHealthProfileJSONShape(t *testing.T) {
	in := validInput()
	in.SixMinuteWalkDistanceM = ptr(550)
	p, err := NewHealthProfile(in)
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "bmi")
	assert.Contains(t, raw, "waistToHeightRatio")
	assert.Contains(t, raw, "fitnessGoals")
	assert.Equal(t, 550.0, raw["sixMinuteWalkDistanceM"])
	assert.NotContains(t, raw, "bodyFatPercentage")
}
