package domain

import "time"

// ScheduledTask is a recurring background task run by the scheduler.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Interval defines how often the task runs.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task runs next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Runs counts completed runs.
	Runs int
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled.
	ItemsProcessed int
}

// TaskIDSync identifies the periodic sync task.
const TaskIDSync = "sync"
