package cpm

// DefaultEpsilon is the tolerance used when comparing day offsets.
const DefaultEpsilon = 1e-9

// Options tunes a CPM analysis.
type Options struct {
	Epsilon float64 // zero means DefaultEpsilon
}

func (o Options) epsilon() float64 {
	if o.Epsilon > 0 {
		return o.Epsilon
	}
	return DefaultEpsilon
}

// CPMResult holds the complete critical path analysis.
// All times are day offsets from the project start (day 0).
type CPMResult struct {
	Tasks           map[string]*TaskSchedule `json:"tasks"`
	CriticalPath    []string                 `json:"critical_path"` // critical task IDs by ES, then ID
	ProjectDuration float64                  `json:"project_duration"`
	Waves           []Wave                   `json:"waves"` // tasks grouped by earliest start
	TopoOrder       []string                 `json:"topo_order"`
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string  `json:"task_id"`
	Duration   float64 `json:"duration"`
	ES         float64 `json:"earliest_start"`
	EF         float64 `json:"earliest_finish"`
	LS         float64 `json:"latest_start"`
	LF         float64 `json:"latest_finish"`
	Float      float64 `json:"total_float"`
	IsCritical bool    `json:"is_critical"`
	Wave       int     `json:"wave"`
}

// Wave represents a group of tasks that share an earliest start.
type Wave struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"` // true if wave contains critical path tasks
}
