package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/Elemanor/renonext-sub004/internal/errs"
	"github.com/Elemanor/renonext-sub004/internal/graph"
)

// Analyze performs critical path method analysis on a task graph using
// the default options.
func Analyze(g *graph.TaskGraph) (*CPMResult, error) {
	return AnalyzeWith(g, Options{})
}

// AnalyzeWith schedules the graph, extracts the critical path and groups
// tasks into start waves.
func AnalyzeWith(g *graph.TaskGraph, opts Options) (*CPMResult, error) {
	result, err := Schedule(g, opts)
	if err != nil {
		return nil, err
	}

	result.ProjectDuration, result.CriticalPath = Extract(result, opts)
	result.Waves = computeWaves(result, opts.epsilon())

	return result, nil
}

// Schedule runs the forward and backward passes. Every task gets its
// earliest/latest start and finish, total float and critical flag.
// Times are day offsets; no task starts before day 0.
func Schedule(g *graph.TaskGraph, opts Options) (*CPMResult, error) {
	eps := opts.epsilon()

	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}

	result := &CPMResult{
		Tasks:     make(map[string]*TaskSchedule, len(order)),
		TopoOrder: order,
	}
	for _, id := range order {
		result.Tasks[id] = &TaskSchedule{TaskID: id, Duration: g.Tasks[id].DurationDays}
	}

	// Forward pass: ES = max over incoming constraints, floored at 0
	for _, id := range order {
		ts := result.Tasks[id]
		es := 0.0
		for _, l := range g.Pred[id] {
			c, ok := constraints[l.Type]
			if !ok {
				return nil, errs.Newf(errs.InvalidInput, "link %s->%s: unknown dependency type %q", l.PredecessorID, l.SuccessorID, l.Type)
			}
			if v := c.forward(result.Tasks[l.PredecessorID], ts, l.LagDays); v > es {
				es = v
			}
		}
		ts.ES = es
		ts.EF = es + ts.Duration
	}

	duration := 0.0
	for _, ts := range result.Tasks {
		if ts.EF > duration {
			duration = ts.EF
		}
	}
	result.ProjectDuration = duration

	// Backward pass: LF = min over outgoing constraints, capped at project end
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]
		lf := duration
		for _, l := range g.Succ[id] {
			c := constraints[l.Type]
			if v := c.backward(ts, result.Tasks[l.SuccessorID], l.LagDays); v < lf {
				lf = v
			}
		}
		ts.LF = lf
		ts.LS = lf - ts.Duration
	}

	for _, id := range order {
		ts := result.Tasks[id]
		ts.Float = ts.LS - ts.ES
		if math.IsNaN(ts.Float) || math.IsInf(ts.Float, 0) {
			return nil, errs.New(errs.InvalidSchedule, "non-finite float", id)
		}
		if ts.Float < -eps {
			return nil, &errs.Error{
				Kind: errs.InvalidSchedule,
				Msg:  fmt.Sprintf("negative float %g", ts.Float),
				IDs:  []string{id},
			}
		}
		if math.Abs(ts.Float) <= eps {
			ts.Float = 0
		}
		ts.IsCritical = ts.Float == 0
	}

	return result, nil
}

// Extract returns the project duration (max earliest finish) and the
// critical tasks ordered by earliest start, ties broken by task id.
// Parallel critical chains are returned as one flat list.
func Extract(result *CPMResult, opts Options) (float64, []string) {
	eps := opts.epsilon()

	duration := 0.0
	var critical []string
	for id, ts := range result.Tasks {
		if ts.EF > duration {
			duration = ts.EF
		}
		if ts.Float <= eps {
			critical = append(critical, id)
		}
	}

	sort.Slice(critical, func(i, j int) bool {
		a, b := result.Tasks[critical[i]], result.Tasks[critical[j]]
		if math.Abs(a.ES-b.ES) > eps {
			return a.ES < b.ES
		}
		return a.TaskID < b.TaskID
	})

	return duration, critical
}

// topoSort performs Kahn's algorithm for topological sorting.
func topoSort(g *graph.TaskGraph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Tasks))
	for id := range g.Tasks {
		inDegree[id] = len(g.Pred[id])
	}

	// Start with roots (in-degree 0), sorted for determinism
	var queue []string
	for id := range g.Tasks {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, l := range g.Succ[node] {
			inDegree[l.SuccessorID]--
			if inDegree[l.SuccessorID] == 0 {
				newReady = append(newReady, l.SuccessorID)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Tasks) {
		var stuck []string
		for id, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, &errs.Error{
			Kind: errs.CyclicDependency,
			Msg:  fmt.Sprintf("topological sort failed (%d of %d tasks sorted)", len(order), len(g.Tasks)),
			IDs:  stuck,
		}
	}

	return order, nil
}

// computeWaves groups tasks whose earliest starts agree within eps.
func computeWaves(result *CPMResult, eps float64) []Wave {
	ids := make([]string, 0, len(result.Tasks))
	for id := range result.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := result.Tasks[ids[i]], result.Tasks[ids[j]]
		if a.ES != b.ES {
			return a.ES < b.ES
		}
		return a.TaskID < b.TaskID
	})

	var waves []Wave
	for _, id := range ids {
		ts := result.Tasks[id]
		if len(waves) == 0 || ts.ES-waves[len(waves)-1].Start > eps {
			waves = append(waves, Wave{Index: len(waves), Start: ts.ES})
		}
		w := &waves[len(waves)-1]
		w.TaskIDs = append(w.TaskIDs, id)
		if ts.IsCritical {
			w.IsCritical = true
		}
		ts.Wave = w.Index
	}

	// Critical tasks first within each wave
	for i := range waves {
		taskIDs := waves[i].TaskIDs
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})
	}

	return waves
}
