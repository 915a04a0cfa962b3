package fitness

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidProfile is returned when profile input fails validation.
var ErrInvalidProfile = errors.New("invalid health profile")

// MinGoalsLength is the shortest accepted fitness goals text.
const MinGoalsLength = 10

// FitnessTests holds optional fitness test scores. Counts are repetitions,
// times are seconds and distances are in the unit named by the field.
type FitnessTests struct {
	ShuttleRunCount         *float64 `json:"shuttleRunCount,omitempty" yaml:"shuttleRunCount,omitempty"`
	TenMeterShuttleRunTime  *float64 `json:"tenMeterShuttleRunTime,omitempty" yaml:"tenMeterShuttleRunTime,omitempty"`
	StandingLongJumpCm      *float64 `json:"standingLongJumpCm,omitempty" yaml:"standingLongJumpCm,omitempty"`
	SitToStandCount         *float64 `json:"sitToStandCount,omitempty" yaml:"sitToStandCount,omitempty"`
	SixMinuteWalkDistanceM  *float64 `json:"sixMinuteWalkDistanceM,omitempty" yaml:"sixMinuteWalkDistanceM,omitempty"`
	TwoMinuteStepCount      *float64 `json:"twoMinuteStepCount,omitempty" yaml:"twoMinuteStepCount,omitempty"`
	SitAndReachTargetTime   *float64 `json:"sitAndReachTargetTime,omitempty" yaml:"sitAndReachTargetTime,omitempty"`
	FiveMeterShuttleRunTime *float64 `json:"fiveMeterShuttleRunTime,omitempty" yaml:"fiveMeterShuttleRunTime,omitempty"`
	RepeatedSideStepCount   *float64 `json:"repeatedSideStepCount,omitempty" yaml:"repeatedSideStepCount,omitempty"`
	EyeHandWallPassTime     *float64 `json:"eyeHandWallPassTime,omitempty" yaml:"eyeHandWallPassTime,omitempty"`
}

// ProfileInput is the user-entered part of a HealthProfile.
type ProfileInput struct {
	Height                  float64  `json:"height" yaml:"height"` // cm
	Weight                  float64  `json:"weight" yaml:"weight"` // kg
	BodyFatPercentage       *float64 `json:"bodyFatPercentage,omitempty" yaml:"bodyFatPercentage,omitempty"`
	WaistCircumference      float64  `json:"waistCircumference" yaml:"waistCircumference"` // cm
	DiastolicBloodPressure  float64  `json:"diastolicBloodPressure" yaml:"diastolicBloodPressure"`
	SystolicBloodPressure   float64  `json:"systolicBloodPressure" yaml:"systolicBloodPressure"`
	LeftThighCircumference  *float64 `json:"leftThighCircumference,omitempty" yaml:"leftThighCircumference,omitempty"`
	RightThighCircumference *float64 `json:"rightThighCircumference,omitempty" yaml:"rightThighCircumference,omitempty"`
	FitnessGoals            string   `json:"fitnessGoals" yaml:"fitnessGoals"`
	FitnessTests            `yaml:",inline"`
}

// HealthProfile is a submitted ProfileInput with its derived metrics.
// It is treated as immutable; re-submission replaces it.
type HealthProfile struct {
	ProfileInput
	BMI                float64 `json:"bmi"`
	WaistToHeightRatio float64 `json:"waistToHeightRatio"`
}

// FieldError names the input field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failing field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidProfile, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidProfile }

// Validate checks the intake rules.
func (in ProfileInput) Validate() error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	if !(in.Height > 0) {
		add("height", "Height must be positive")
	}
	if !(in.Weight > 0) {
		add("weight", "Weight must be positive")
	}
	if in.BodyFatPercentage != nil && (*in.BodyFatPercentage < 0 || *in.BodyFatPercentage > 100) {
		add("bodyFatPercentage", "Body fat must be between 0 and 100")
	}
	if !(in.WaistCircumference > 0) {
		add("waistCircumference", "Waist circumference must be positive")
	}
	if !positiveInt(in.DiastolicBloodPressure) {
		add("diastolicBloodPressure", "Diastolic BP must be a positive integer")
	}
	if !positiveInt(in.SystolicBloodPressure) {
		add("systolicBloodPressure", "Systolic BP must be a positive integer")
	}
	if in.LeftThighCircumference != nil && !(*in.LeftThighCircumference > 0) {
		add("leftThighCircumference", "Left thigh circumference must be positive")
	}
	if in.RightThighCircumference != nil && !(*in.RightThighCircumference > 0) {
		add("rightThighCircumference", "Right thigh circumference must be positive")
	}
	if len([]rune(in.FitnessGoals)) < MinGoalsLength {
		add("fitnessGoals", "Please describe your fitness goals (min. 10 characters)")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func positiveInt(v float64) bool {
	return v > 0 && v == math.Trunc(v)
}

// NewHealthProfile validates the input and computes the derived metrics.
func NewHealthProfile(in ProfileInput) (HealthProfile, error) {
	if err := in.Validate(); err != nil {
		return HealthProfile{}, err
	}
	return Derive(in), nil
}

// Derive computes bmi and waistToHeightRatio without validating. Both are
// zero when height is not positive.
func Derive(in ProfileInput) HealthProfile {
	p := HealthProfile{ProfileInput: in}
	if in.Height > 0 {
		m := in.Height / 100
		p.BMI = finite(in.Weight / (m * m))
		p.WaistToHeightRatio = finite(in.WaistCircumference / in.Height)
	}
	return p
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
