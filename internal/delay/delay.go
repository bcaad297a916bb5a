// Package delay classifies tasks as on track, at risk or delayed by
// comparing planned and actual finish dates against an injected clock.
package delay

import (
	"time"

	"github.com/Elemanor/renonext-sub004/internal/graph"
)

// Status is the delay classification of a single task.
type Status string

const (
	OnTrack         Status = "on_track"
	AtRisk          Status = "at_risk"
	Delayed         Status = "delayed"
	CompletedLate   Status = "completed_late"
	CompletedOnTime Status = "completed_on_time"
	Unknown         Status = "unknown"
)

// DefaultWindowDays is how close a planned end may be before an open task
// counts as at risk.
const DefaultWindowDays = 3

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Classifier holds the at-risk window and the clock used to classify tasks.
type Classifier struct {
	WindowDays int
	Clock      Clock
}

// NewClassifier returns a Classifier with the given window and clock.
// A nil clock means the system clock.
func NewClassifier(windowDays int, clock Clock) Classifier {
	if clock == nil {
		clock = SystemClock
	}
	return Classifier{WindowDays: windowDays, Clock: clock}
}

// Classify reads the clock once and classifies the given dates.
func (c Classifier) Classify(plannedEnd, actualEnd *time.Time, status graph.TaskStatus) Status {
	clock := c.Clock
	if clock == nil {
		clock = SystemClock
	}
	return ClassifyWindow(plannedEnd, actualEnd, status, clock.Now(), c.WindowDays)
}

// Task classifies a graph task.
func (c Classifier) Task(t *graph.Task) Status {
	return c.Classify(t.PlannedEnd, t.ActualEnd, t.Status)
}

// Classify uses the default at-risk window.
func Classify(plannedEnd, actualEnd *time.Time, status graph.TaskStatus, now time.Time) Status {
	return ClassifyWindow(plannedEnd, actualEnd, status, now, DefaultWindowDays)
}

// ClassifyWindow compares dates at calendar-day granularity, each date in
// the zone it was recorded in, so a task due today is at risk rather than
// delayed.
func ClassifyWindow(plannedEnd, actualEnd *time.Time, status graph.TaskStatus, now time.Time, windowDays int) Status {
	if status == graph.StatusCompleted {
		if plannedEnd == nil || actualEnd == nil {
			return Unknown
		}
		if daysBetween(*plannedEnd, *actualEnd) <= 0 {
			return CompletedOnTime
		}
		return CompletedLate
	}

	if plannedEnd == nil {
		return Unknown
	}

	remaining := daysBetween(now, *plannedEnd)
	switch {
	case remaining < 0:
		return Delayed
	case remaining <= windowDays:
		return AtRisk
	default:
		return OnTrack
	}
}

// daysBetween returns the number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
