// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. PasswordHash is never serialised.
type User struct {
	ID           string            `json:"id" db:"id"`
	Email        string            `json:"email" db:"email"`
	PasswordHash string            `json:"-" db:"password_hash"`
	Name         string            `json:"name" db:"name"`
	Preferences  Preferences       `json:"preferences" db:"preferences"`
	Fitbit       *FitbitConnection `json:"-" db:"-"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" db:"updated_at"`
}

// FitbitConnected reports whether the user has linked a Fitbit account.
func (u *User) FitbitConnected() bool {
	return u.Fitbit != nil && u.Fitbit.AccessToken != ""
}

// FitbitConnection is the stored OAuth2 token pair for one user.
// LastSync is nil until the first successful sync.
type FitbitConnection struct {
	ExternalID   string     `json:"id" db:"fitbit_id"`
	AccessToken  string     `json:"-" db:"fitbit_access_token"`
	RefreshToken string     `json:"-" db:"fitbit_refresh_token"`
	LastSync     *time.Time `json:"lastSync" db:"fitbit_last_sync"`
}

// Preferences are UI settings stored as a JSON document on the user row.
type Preferences struct {
	Theme         string        `json:"theme"`
	WeekStartsOn  int           `json:"weekStartsOn"`
	Units         string        `json:"units"`
	TimeFormat    string        `json:"timeFormat"`
	Notifications Notifications `json:"notifications"`
}

type Notifications struct {
	SleepReminders   bool `json:"sleepReminders"`
	FitnessReminders bool `json:"fitnessReminders"`
	WeeklyReport     bool `json:"weeklyReport"`
}

// DefaultPreferences are assigned to every new account.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:        "system",
		WeekStartsOn: 1,
		Units:        "metric",
		TimeFormat:   "24h",
		Notifications: Notifications{
			SleepReminders:   true,
			FitnessReminders: true,
			WeeklyReport:     true,
		},
	}
}

// PreferencesPatch carries a partial preferences update. Nil fields keep
// their stored value.
type PreferencesPatch struct {
	Theme         *string             `json:"theme" validate:"omitempty,oneof=light dark system"`
	WeekStartsOn  *int                `json:"weekStartsOn" validate:"omitempty,oneof=0 1"`
	Units         *string             `json:"units" validate:"omitempty,oneof=metric imperial"`
	TimeFormat    *string             `json:"timeFormat" validate:"omitempty,oneof=12h 24h"`
	Notifications *NotificationsPatch `json:"notifications"`
}

type NotificationsPatch struct {
	SleepReminders   *bool `json:"sleepReminders"`
	FitnessReminders *bool `json:"fitnessReminders"`
	WeeklyReport     *bool `json:"weeklyReport"`
}

// Apply copies the present fields of the patch onto p.
func (patch PreferencesPatch) Apply(p *Preferences) {
	if patch.Theme != nil {
		p.Theme = *patch.Theme
	}
	if patch.WeekStartsOn != nil {
		p.WeekStartsOn = *patch.WeekStartsOn
	}
	if patch.Units != nil {
		p.Units = *patch.Units
	}
	if patch.TimeFormat != nil {
		p.TimeFormat = *patch.TimeFormat
	}
	if n := patch.Notifications; n != nil {
		if n.SleepReminders != nil {
			p.Notifications.SleepReminders = *n.SleepReminders
		}
		if n.FitnessReminders != nil {
			p.Notifications.FitnessReminders = *n.FitnessReminders
		}
		if n.WeeklyReport != nil {
			p.Notifications.WeeklyReport = *n.WeeklyReport
		}
	}
}
