package model

import "time"

// NewSleepEntry is the body of a manual sleep entry create.
type NewSleepEntry struct {
	Date          string    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     time.Time `json:"startTime" validate:"required"`
	EndTime       time.Time `json:"endTime" validate:"required"`
	Duration      int       `json:"duration" validate:"gte=0"`
	Quality       int       `json:"quality" validate:"gte=1,lte=10"`
	DeepSleepPct  float64   `json:"deepSleepPercentage" validate:"gte=0,lte=100"`
	RemSleepPct   float64   `json:"remSleepPercentage" validate:"gte=0,lte=100"`
	LightSleepPct float64   `json:"lightSleepPercentage" validate:"gte=0,lte=100"`
	AwakeTime     int       `json:"awakeTime" validate:"gte=0"`
	Notes         string    `json:"notes" validate:"max=1000"`
}

// Entry builds a manual SleepEntry owned by userID.
func (n NewSleepEntry) Entry(userID string) *SleepEntry {
	return &SleepEntry{
		UserID:        userID,
		Date:          n.Date,
		StartTime:     n.StartTime.UTC(),
		EndTime:       n.EndTime.UTC(),
		Duration:      n.Duration,
		Quality:       n.Quality,
		DeepSleepPct:  n.DeepSleepPct,
		RemSleepPct:   n.RemSleepPct,
		LightSleepPct: n.LightSleepPct,
		AwakeTime:     n.AwakeTime,
		Notes:         n.Notes,
		Source:        SourceManual,
	}
}

// NewActivity is the body of a manual activity create.
type NewActivity struct {
	Date           string       `json:"date" validate:"required,datetime=2006-01-02"`
	Type           ActivityType `json:"type" validate:"required,oneof=running walking cycling swimming weightlifting yoga other"`
	Duration       float64      `json:"duration" validate:"gte=0"`
	CaloriesBurned float64      `json:"caloriesBurned" validate:"gte=0"`
	Distance       *float64     `json:"distance" validate:"omitempty,gte=0"`
	Steps          *int         `json:"steps" validate:"omitempty,gte=0"`
	HeartRate      *HeartRate   `json:"heartRate"`
	Notes          string       `json:"notes" validate:"max=1000"`
}

// Activity builds a manual FitnessActivity owned by userID.
func (n NewActivity) Activity(userID string) *FitnessActivity {
	return &FitnessActivity{
		UserID:         userID,
		Date:           n.Date,
		Type:           n.Type,
		Duration:       n.Duration,
		CaloriesBurned: n.CaloriesBurned,
		Distance:       n.Distance,
		Steps:          n.Steps,
		HeartRate:      n.HeartRate,
		Notes:          n.Notes,
		Source:         SourceManual,
	}
}
