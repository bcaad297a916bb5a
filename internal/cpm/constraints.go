package cpm

import "github.com/Elemanor/renonext-sub004/internal/graph"

// constraint holds the two rules one link type imposes.
//
// forward returns the earliest start the successor may take given the
// predecessor's earliest dates. backward returns the latest finish the
// predecessor may take given the successor's latest dates.
type constraint struct {
	forward  func(pred, succ *TaskSchedule, lag float64) float64
	backward func(pred, succ *TaskSchedule, lag float64) float64
}

var constraints = map[graph.LinkType]constraint{
	// ES_s >= EF_p + lag
	graph.FinishToStart: {
		forward: func(p, s *TaskSchedule, lag float64) float64 {
			return p.EF + lag
		},
		backward: func(p, s *TaskSchedule, lag float64) float64 {
			return s.LS - lag
		},
	},
	// ES_s >= ES_p + lag
	graph.StartToStart: {
		forward: func(p, s *TaskSchedule, lag float64) float64 {
			return p.ES + lag
		},
		backward: func(p, s *TaskSchedule, lag float64) float64 {
			return s.LS - lag + p.Duration
		},
	},
	// EF_s >= EF_p + lag
	graph.FinishToFinish: {
		forward: func(p, s *TaskSchedule, lag float64) float64 {
			return p.EF + lag - s.Duration
		},
		backward: func(p, s *TaskSchedule, lag float64) float64 {
			return s.LF - lag
		},
	},
	// EF_s >= ES_p + lag
	graph.StartToFinish: {
		forward: func(p, s *TaskSchedule, lag float64) float64 {
			return p.ES + lag - s.Duration
		},
		backward: func(p, s *TaskSchedule, lag float64) float64 {
			return s.LF - lag + p.Duration
		},
	},
}
