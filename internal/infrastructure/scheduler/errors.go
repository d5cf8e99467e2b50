package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned when a cron expression cannot be parsed
	ErrInvalidSchedule = errors.New("invalid refresh schedule")

	// ErrSchedulerStopped is returned when starting a scheduler that was already stopped
	ErrSchedulerStopped = errors.New("scheduler has been stopped")
)
