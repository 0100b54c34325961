package fitbit

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// SleepLog is one entry of the sleep-by-date-range response.
type SleepLog struct {
	LogID         int64        `json:"logId"`
	DateOfSleep   string       `json:"dateOfSleep"`
	StartTime     string       `json:"startTime"`
	EndTime       string       `json:"endTime"`
	MinutesAsleep int          `json:"minutesAsleep"`
	MinutesAwake  int          `json:"minutesAwake"`
	IsMainSleep   bool         `json:"isMainSleep"`
	Levels        *SleepLevels `json:"levels,omitempty"`

	// Raw is the record exactly as Fitbit sent it.
	Raw []byte `json:"-"`
}

type SleepLevels struct {
	Summary SleepLevelSummary `json:"summary"`
}

// SleepLevelSummary holds per-stage totals. Classic (non-stage) logs carry
// asleep/restless/awake instead, so every stage is optional.
type SleepLevelSummary struct {
	Deep  *LevelMinutes `json:"deep,omitempty"`
	Rem   *LevelMinutes `json:"rem,omitempty"`
	Light *LevelMinutes `json:"light,omitempty"`
	Wake  *LevelMinutes `json:"wake,omitempty"`
}

type LevelMinutes struct {
	Minutes int `json:"minutes"`
}

// Value returns the minutes, or 0 for a missing stage.
func (m *LevelMinutes) Value() int {
	if m == nil {
		return 0
	}
	return m.Minutes
}

// HeartRateZone is shared by activity and heart-rate payloads.
type HeartRateZone struct {
	Name    string  `json:"name"`
	Minutes float64 `json:"minutes"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// Activity is a logged exercise. Duration is in milliseconds.
type Activity struct {
	LogID            int64           `json:"logId"`
	ActivityName     string          `json:"activityName"`
	Duration         int64           `json:"duration"`
	Calories         float64         `json:"calories"`
	Distance         *float64        `json:"distance,omitempty"`
	Steps            *int            `json:"steps,omitempty"`
	AverageHeartRate *int            `json:"averageHeartRate,omitempty"`
	MaxHeartRate     *int            `json:"maxHeartRate,omitempty"`
	HeartRateZones   []HeartRateZone `json:"heartRateZones,omitempty"`

	Raw []byte `json:"-"`
}

type ActivitySummary struct {
	CaloriesOut         float64 `json:"caloriesOut"`
	FairlyActiveMinutes float64 `json:"fairlyActiveMinutes"`
	VeryActiveMinutes   float64 `json:"veryActiveMinutes"`
	Steps               int     `json:"steps"`
	RestingHeartRate    *int    `json:"restingHeartRate,omitempty"`
}

// DailyActivity is the activities-by-date response.
type DailyActivity struct {
	Activities []Activity      `json:"-"`
	Summary    ActivitySummary `json:"summary"`

	Raw []byte `json:"-"`
}

// HeartRateDay is one day of the heart-rate time series.
type HeartRateDay struct {
	DateTime string `json:"dateTime"`
	Value    struct {
		RestingHeartRate *int            `json:"restingHeartRate,omitempty"`
		HeartRateZones   []HeartRateZone `json:"heartRateZones"`
	} `json:"value"`

	Raw []byte `json:"-"`
}

// SleepByDateRange returns the sleep logs dated within [start, end].
func (c *Client) SleepByDateRange(ctx context.Context, userID, start, end string) ([]SleepLog, error) {
	var resp struct {
		Sleep []json.RawMessage `json:"sleep"`
	}
	path := fmt.Sprintf("/1.2/user/-/sleep/date/%s/%s.json", start, end)
	if err := c.get(ctx, userID, EndpointSleep, path, &resp); err != nil {
		return nil, err
	}

	logs := make([]SleepLog, 0, len(resp.Sleep))
	for _, raw := range resp.Sleep {
		var l SleepLog
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, c.fail(EndpointSleep, 200, fmt.Errorf("decoding sleep log: %w", err))
		}
		l.Raw = raw
		logs = append(logs, l)
	}
	return logs, nil
}

// ActivitiesByDate returns the logged activities and daily summary for date.
func (c *Client) ActivitiesByDate(ctx context.Context, userID, date string) (*DailyActivity, error) {
	var resp struct {
		Activities []json.RawMessage `json:"activities"`
		Summary    json.RawMessage   `json:"summary"`
	}
	path := fmt.Sprintf("/1/user/-/activities/date/%s.json", date)
	if err := c.get(ctx, userID, EndpointActivities, path, &resp); err != nil {
		return nil, err
	}

	day := &DailyActivity{Activities: make([]Activity, 0, len(resp.Activities))}
	if len(resp.Summary) > 0 {
		if err := json.Unmarshal(resp.Summary, &day.Summary); err != nil {
			return nil, c.fail(EndpointActivities, 200, fmt.Errorf("decoding activity summary: %w", err))
		}
		day.Raw = resp.Summary
	}
	for _, raw := range resp.Activities {
		var a Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, c.fail(EndpointActivities, 200, fmt.Errorf("decoding activity: %w", err))
		}
		a.Raw = raw
		day.Activities = append(day.Activities, a)
	}
	return day, nil
}

// HeartRateByDate returns the heart-rate summary for date, or nil when
// Fitbit has no data for it.
func (c *Client) HeartRateByDate(ctx context.Context, userID, date string) (*HeartRateDay, error) {
	var resp struct {
		Days []json.RawMessage `json:"activities-heart"`
	}
	path := fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d.json", date)
	if err := c.get(ctx, userID, EndpointHeartRate, path, &resp); err != nil {
		return nil, err
	}
	if len(resp.Days) == 0 {
		return nil, nil
	}

	var day HeartRateDay
	if err := json.Unmarshal(resp.Days[0], &day); err != nil {
		return nil, c.fail(EndpointHeartRate, 200, fmt.Errorf("decoding heart rate: %w", err))
	}
	day.Raw = resp.Days[0]
	return &day, nil
}
