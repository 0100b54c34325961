package model

import (
	"encoding/json"
	"time"
)

// ActivityType is the fixed category set activities are filed under.
type ActivityType string

const (
	ActivityRunning       ActivityType = "running"
	ActivityWalking       ActivityType = "walking"
	ActivityCycling       ActivityType = "cycling"
	ActivitySwimming      ActivityType = "swimming"
	ActivityWeightlifting ActivityType = "weightlifting"
	ActivityYoga          ActivityType = "yoga"
	ActivityOther         ActivityType = "other"
)

// ActivityTypes lists every valid category.
var ActivityTypes = []ActivityType{
	ActivityRunning, ActivityWalking, ActivityCycling, ActivitySwimming,
	ActivityWeightlifting, ActivityYoga, ActivityOther,
}

// Valid reports whether t is one of ActivityTypes.
func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// HeartRateZones holds minutes spent in each provider zone.
type HeartRateZones struct {
	OutOfRange float64 `json:"outOfRange"`
	FatBurn    float64 `json:"fatBurn"`
	Cardio     float64 `json:"cardio"`
	Peak       float64 `json:"peak"`
}

type HeartRate struct {
	Average *int            `json:"average,omitempty"`
	Max     *int            `json:"max,omitempty"`
	Min     *int            `json:"min,omitempty"`
	Zones   *HeartRateZones `json:"zones,omitempty"`
}

// FitnessActivity is a single workout. ExternalID is set only for imported
// activities and, with UserID and Date, is unique.
type FitnessActivity struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"userId" db:"user_id"`
	Date           string          `json:"date" db:"date"`
	Type           ActivityType    `json:"type" db:"type"`
	Duration       float64         `json:"duration" db:"duration"`                // minutes
	CaloriesBurned float64         `json:"caloriesBurned" db:"calories_burned"`
	Distance       *float64        `json:"distance,omitempty" db:"distance"`
	Steps          *int            `json:"steps,omitempty" db:"steps"`
	HeartRate      *HeartRate      `json:"heartRate,omitempty" db:"heart_rate"`
	Notes          string          `json:"notes,omitempty" db:"notes"`
	Source         Source          `json:"source" db:"source"`
	ExternalID     *string         `json:"externalId,omitempty" db:"external_id"`
	RawData        json.RawMessage `json:"rawData,omitempty" db:"raw_data"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

// SummaryDelta returns the contribution of a to its day's summary.
func (a *FitnessActivity) SummaryDelta() SummaryDelta {
	d := SummaryDelta{Calories: a.CaloriesBurned, ActiveMinutes: a.Duration}
	if a.Steps != nil {
		d.Steps = *a.Steps
	}
	return d
}

// ActivityPatch is a partial update of a manual activity.
type ActivityPatch struct {
	Date           *string       `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type           *ActivityType `json:"type" validate:"omitempty,oneof=running walking cycling swimming weightlifting yoga other"`
	Duration       *float64      `json:"duration" validate:"omitempty,gte=0"`
	CaloriesBurned *float64      `json:"caloriesBurned" validate:"omitempty,gte=0"`
	Distance       *float64      `json:"distance" validate:"omitempty,gte=0"`
	Steps          *int          `json:"steps" validate:"omitempty,gte=0"`
	HeartRate      *HeartRate    `json:"heartRate"`
	Notes          *string       `json:"notes" validate:"omitempty,max=1000"`
}

// Apply copies the present fields onto a.
func (p ActivityPatch) Apply(a *FitnessActivity) {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Duration != nil {
		a.Duration = *p.Duration
	}
	if p.CaloriesBurned != nil {
		a.CaloriesBurned = *p.CaloriesBurned
	}
	if p.Distance != nil {
		a.Distance = p.Distance
	}
	if p.Steps != nil {
		a.Steps = p.Steps
	}
	if p.HeartRate != nil {
		a.HeartRate = p.HeartRate
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
}

// DailyFitnessSummary aggregates one user's day. (UserID, Date) is unique.
type DailyFitnessSummary struct {
	ID                 string          `json:"id" db:"id"`
	UserID             string          `json:"userId" db:"user_id"`
	Date               string          `json:"date" db:"date"`
	TotalCalories      float64         `json:"totalCalories" db:"total_calories"`
	TotalActiveMinutes float64         `json:"totalActiveMinutes" db:"total_active_minutes"`
	TotalSteps         int             `json:"totalSteps" db:"total_steps"`
	RestingHeartRate   *int            `json:"restingHeartRate,omitempty" db:"resting_heart_rate"`
	Source             Source          `json:"source" db:"source"`
	RawData            json.RawMessage `json:"rawData,omitempty" db:"raw_data"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}

// SummaryDelta is a signed change applied to a daily summary.
type SummaryDelta struct {
	Calories      float64
	ActiveMinutes float64
	Steps         int
}

// Neg returns the delta that undoes d.
func (d SummaryDelta) Neg() SummaryDelta {
	return SummaryDelta{Calories: -d.Calories, ActiveMinutes: -d.ActiveMinutes, Steps: -d.Steps}
}

// Sub returns d - o.
func (d SummaryDelta) Sub(o SummaryDelta) SummaryDelta {
	return SummaryDelta{
		Calories:      d.Calories - o.Calories,
		ActiveMinutes: d.ActiveMinutes - o.ActiveMinutes,
		Steps:         d.Steps - o.Steps,
	}
}

// IsZero reports whether applying d would change nothing.
func (d SummaryDelta) IsZero() bool {
	return d.Calories == 0 && d.ActiveMinutes == 0 && d.Steps == 0
}
