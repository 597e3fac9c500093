package models

import "time"

// Bot lifecycle statuses shown on the admin surface
const (
	StatusRunning   = "Running"
	StatusScheduled = "Scheduled"
	StatusError     = "Error"
	StatusStopped   = "Stopped"
)

// BotStatus represents single lifecycle log entry; newest row wins when the
// admin surface reads "current status"
type BotStatus struct {
	Timestamp        time.Time  `json:"timestamp" db:"timestamp"`
	NextScheduledRun *time.Time `json:"next_scheduled_run,omitempty" db:"next_scheduled_run"`
	Status           string     `json:"status" db:"status"`
	Message          string     `json:"message" db:"message"`
	ID               int64      `json:"id" db:"id"`
}
