package graph

import (
	"math"
	"sort"

	"github.com/Elemanor/renonext-sub004/internal/errs"
)

// Build constructs a TaskGraph from task and dependency records.
// It rejects duplicate task ids, links to unknown tasks, malformed
// durations or link types, and dependency cycles. The inputs are copied;
// the returned graph does not alias the caller's slices.
func Build(tasks []Task, links []Link) (*TaskGraph, error) {
	g := &TaskGraph{
		Tasks: make(map[string]*Task, len(tasks)),
		Succ:  make(map[string][]Link),
		Pred:  make(map[string][]Link),
	}

	// Index all tasks
	for i := range tasks {
		t := tasks[i]
		if _, dup := g.Tasks[t.ID]; dup {
			return nil, errs.New(errs.DuplicateTask, "duplicate task id", t.ID)
		}
		if err := validateTask(&t); err != nil {
			return nil, err
		}
		g.Tasks[t.ID] = &t
	}

	type edgeKey struct {
		from, to string
		typ      LinkType
		lag      float64
	}
	edgeSet := make(map[edgeKey]bool)

	for _, l := range links {
		if l.Type == "" {
			l.Type = FinishToStart
		}
		if !l.Type.Valid() {
			return nil, errs.Newf(errs.InvalidInput, "link %s: unknown dependency type %q", linkName(l), l.Type)
		}
		if math.IsNaN(l.LagDays) || math.IsInf(l.LagDays, 0) {
			return nil, errs.Newf(errs.InvalidInput, "link %s: lag must be a finite number", linkName(l))
		}
		if _, ok := g.Tasks[l.PredecessorID]; !ok {
			return nil, &errs.Error{
				Kind: errs.UnknownTaskReference,
				Msg:  "link " + linkName(l) + " references unknown predecessor",
				IDs:  []string{l.PredecessorID},
			}
		}
		if _, ok := g.Tasks[l.SuccessorID]; !ok {
			return nil, &errs.Error{
				Kind: errs.UnknownTaskReference,
				Msg:  "link " + linkName(l) + " references unknown successor",
				IDs:  []string{l.SuccessorID},
			}
		}

		key := edgeKey{l.PredecessorID, l.SuccessorID, l.Type, l.LagDays}
		if edgeSet[key] {
			continue
		}
		edgeSet[key] = true
		g.Links = append(g.Links, l)
		g.Succ[l.PredecessorID] = append(g.Succ[l.PredecessorID], l)
		g.Pred[l.SuccessorID] = append(g.Pred[l.SuccessorID], l)
	}

	// Sort adjacency lists for deterministic ordering
	for k := range g.Succ {
		sortLinks(g.Succ[k], func(l Link) string { return l.SuccessorID })
	}
	for k := range g.Pred {
		sortLinks(g.Pred[k], func(l Link) string { return l.PredecessorID })
	}
	sortLinks(g.Links, func(l Link) string { return l.PredecessorID + "\x00" + l.SuccessorID })

	for id := range g.Tasks {
		if len(g.Pred[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Succ[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}
	sort.Strings(g.Roots)
	sort.Strings(g.Leaves)

	// Check for cycles
	if cycle := g.DetectCycle(); cycle != nil {
		return nil, errs.New(errs.CyclicDependency, "dependency cycle detected", cycle...)
	}

	return g, nil
}

func validateTask(t *Task) error {
	if t.ID == "" {
		return errs.Newf(errs.InvalidInput, "task %q has an empty id", t.Title)
	}
	if math.IsNaN(t.DurationDays) || math.IsInf(t.DurationDays, 0) || t.DurationDays < 0 {
		return errs.Newf(errs.InvalidInput, "task %s: duration must be a non-negative number, got %v", t.ID, t.DurationDays)
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if !t.Status.Valid() {
		return errs.Newf(errs.InvalidInput, "task %s: unknown status %q", t.ID, t.Status)
	}
	return nil
}

func linkName(l Link) string {
	if l.ID != "" {
		return l.ID
	}
	return l.PredecessorID + "->" + l.SuccessorID
}

func sortLinks(links []Link, key func(Link) string) {
	sort.SliceStable(links, func(i, j int) bool {
		ki, kj := key(links[i]), key(links[j])
		if ki != kj {
			return ki < kj
		}
		if links[i].Type != links[j].Type {
			return links[i].Type < links[j].Type
		}
		return links[i].LagDays < links[j].LagDays
	})
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
// The returned path starts and ends on the same task.
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, l := range g.Succ[node] {
			next := l.SuccessorID
			if color[next] == gray {
				// Walk parents back to the re-entered node
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := g.IDs()
	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// IDs returns all task ids in sorted order.
func (g *TaskGraph) IDs() []string {
	ids := make([]string, 0, len(g.Tasks))
	for id := range g.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// Filter returns a new TaskGraph containing only tasks matching the predicate.
// Links touching a filtered-out task are dropped.
func (g *TaskGraph) Filter(pred func(*Task) bool) (*TaskGraph, error) {
	var tasks []Task
	keep := make(map[string]bool)
	for _, id := range g.IDs() {
		t := g.Tasks[id]
		if pred(t) {
			tasks = append(tasks, *t)
			keep[id] = true
		}
	}

	var links []Link
	for _, l := range g.Links {
		if keep[l.PredecessorID] && keep[l.SuccessorID] {
			links = append(links, l)
		}
	}
	return Build(tasks, links)
}
