package graph

import "time"

// TaskStatus is the lifecycle state of a schedulable task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// LinkType says which endpoint of the predecessor constrains which
// endpoint of the successor.
type LinkType string

const (
	FinishToStart  LinkType = "finish_to_start"
	StartToStart   LinkType = "start_to_start"
	FinishToFinish LinkType = "finish_to_finish"
	StartToFinish  LinkType = "start_to_finish"
)

// Valid reports whether lt is one of the four CPM link types.
func (lt LinkType) Valid() bool {
	switch lt {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// Task represents a single unit of schedulable work on a job site.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Status          TaskStatus `json:"status"`
	DurationDays    float64    `json:"duration_days"`
	PlannedStart    *time.Time `json:"planned_start,omitempty"`
	PlannedEnd      *time.Time `json:"planned_end,omitempty"`
	ActualStart     *time.Time `json:"actual_start,omitempty"`
	ActualEnd       *time.Time `json:"actual_end,omitempty"`
	PercentComplete float64    `json:"percent_complete"`
	AssignedCompany string     `json:"assigned_company,omitempty"`
}

// Link is a directed dependency edge between two tasks.
type Link struct {
	ID            string   `json:"id,omitempty"`
	PredecessorID string   `json:"predecessor_id"`
	SuccessorID   string   `json:"successor_id"`
	Type          LinkType `json:"type"`
	LagDays       float64  `json:"lag_days"` // negative = lead time
}

// TaskGraph is a directed acyclic graph of tasks.
type TaskGraph struct {
	Tasks  map[string]*Task
	Links  []Link
	Succ   map[string][]Link // task -> links where it is the predecessor
	Pred   map[string][]Link // task -> links where it is the successor
	Roots  []string          // tasks with no predecessors
	Leaves []string          // tasks with no successors
}
