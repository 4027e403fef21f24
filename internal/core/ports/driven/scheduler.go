package driven

import (
	"context"
	"time"
)

// JobScheduler runs one-shot delayed jobs.
type JobScheduler interface {
	// ScheduleOnce runs fn after delay. It does not block and reports
	// whether the job was accepted. An accepted fn is called exactly once;
	// when the scheduler stops first, it is called with a done context.
	ScheduleOnce(id string, delay time.Duration, fn func(ctx context.Context) error) bool
}
