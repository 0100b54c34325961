package model

import (
	"encoding/json"
	"time"
)

// SleepEntry is one night of sleep. (UserID, Date) is unique.
//
// The three stage percentages sum to 100 within 0.1 whenever the entry has
// any asleep minutes.
type SleepEntry struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"userId" db:"user_id"`
	Date          string          `json:"date" db:"date"`                            // YYYY-MM-DD
	StartTime     time.Time       `json:"startTime" db:"start_time"`
	EndTime       time.Time       `json:"endTime" db:"end_time"`
	Duration      int             `json:"duration" db:"duration"`                    // minutes asleep
	Quality       int             `json:"quality" db:"quality"`
	DeepSleepPct  float64         `json:"deepSleepPercentage" db:"deep_sleep_pct"`
	RemSleepPct   float64         `json:"remSleepPercentage" db:"rem_sleep_pct"`
	LightSleepPct float64         `json:"lightSleepPercentage" db:"light_sleep_pct"`
	AwakeTime     int             `json:"awakeTime" db:"awake_time"`                 // minutes
	Notes         string          `json:"notes,omitempty" db:"notes"`
	Source        Source          `json:"source" db:"source"`
	RawData       json.RawMessage `json:"rawData,omitempty" db:"raw_data"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// SleepPatch is a partial update of a manual sleep entry.
type SleepPatch struct {
	Date          *string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Duration      *int       `json:"duration" validate:"omitempty,gte=0"`
	Quality       *int       `json:"quality" validate:"omitempty,gte=1,lte=10"`
	DeepSleepPct  *float64   `json:"deepSleepPercentage" validate:"omitempty,gte=0,lte=100"`
	RemSleepPct   *float64   `json:"remSleepPercentage" validate:"omitempty,gte=0,lte=100"`
	LightSleepPct *float64   `json:"lightSleepPercentage" validate:"omitempty,gte=0,lte=100"`
	AwakeTime     *int       `json:"awakeTime" validate:"omitempty,gte=0"`
	Notes         *string    `json:"notes" validate:"omitempty,max=1000"`
}

// TouchesStages reports whether any stage percentage is present.
func (p SleepPatch) TouchesStages() bool {
	return p.DeepSleepPct != nil || p.RemSleepPct != nil || p.LightSleepPct != nil
}

// Apply copies the present fields onto e.
func (p SleepPatch) Apply(e *SleepEntry) {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Duration != nil {
		e.Duration = *p.Duration
	}
	if p.Quality != nil {
		e.Quality = *p.Quality
	}
	if p.DeepSleepPct != nil {
		e.DeepSleepPct = *p.DeepSleepPct
	}
	if p.RemSleepPct != nil {
		e.RemSleepPct = *p.RemSleepPct
	}
	if p.LightSleepPct != nil {
		e.LightSleepPct = *p.LightSleepPct
	}
	if p.AwakeTime != nil {
		e.AwakeTime = *p.AwakeTime
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}

// SleepStats are averages over a date range.
type SleepStats struct {
	AverageDuration   int     `json:"averageDuration"`
	AverageQuality    float64 `json:"averageQuality"`
	AverageDeepSleep  float64 `json:"averageDeepSleep"`
	AverageRemSleep   float64 `json:"averageRemSleep"`
	AverageLightSleep float64 `json:"averageLightSleep"`
	AverageAwakeTime  float64 `json:"averageAwakeTime"`
	TotalEntries      int     `json:"totalEntries"`
	StartDate         string  `json:"startDate"`
	EndDate           string  `json:"endDate"`
}
