package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Elemanor/renonext-sub004/internal/baseline"
	"github.com/Elemanor/renonext-sub004/internal/cpm"
	"github.com/Elemanor/renonext-sub004/internal/delay"
	"github.com/Elemanor/renonext-sub004/internal/graph"
	"github.com/Elemanor/renonext-sub004/internal/milestone"
	"github.com/Elemanor/renonext-sub004/internal/sci"
	"github.com/Elemanor/renonext-sub004/internal/ui"
)

// Reporter renders a scheduled project.
type Reporter struct {
	Graph      *graph.TaskGraph
	Result     *cpm.CPMResult
	Classifier delay.Classifier
}

// New creates a new Reporter.
func New(g *graph.TaskGraph, result *cpm.CPMResult, classifier delay.Classifier) *Reporter {
	return &Reporter{
		Graph:      g,
		Result:     result,
		Classifier: classifier,
	}
}

// PrintSchedule writes a terminal-friendly schedule grouped by wave.
func (r *Reporter) PrintSchedule(w io.Writer) {
	fmt.Fprintf(w, "🎯 %s — %s tasks, %s days\n",
		ui.BoldCyan("Project Schedule"),
		ui.Bold(r.Graph.TaskCount()),
		ui.Bold(days(r.Result.ProjectDuration)))
	if len(r.Result.CriticalPath) > 0 {
		fmt.Fprintf(w, "⚡ Critical path: %s\n", ui.BoldYellow(strings.Join(r.Result.CriticalPath, " → ")))
	}
	fmt.Fprintln(w)

	for _, wave := range r.Result.Waves {
		fmt.Fprintf(w, "  🌊 %s %d %s (%s)\n",
			ui.BoldWhite("WAVE"), wave.Index+1,
			ui.Dim(fmt.Sprintf("day %s", days(wave.Start))),
			ui.WaveStatus(wave.IsCritical))
		for _, id := range wave.TaskIDs {
			r.printTask(w, id)
		}
		fmt.Fprintln(w)
	}
}

func (r *Reporter) printTask(w io.Writer, id string) {
	task := r.Graph.Tasks[id]
	ts := r.Result.Tasks[id]

	critical := " "
	if ts.IsCritical {
		critical = ui.BoldYellow("⚡")
	}

	title := truncate(task.Title, 40)

	span := ui.Dim(fmt.Sprintf("[%s → %s, float %s]", days(ts.ES), days(ts.EF), days(ts.Float)))
	fmt.Fprintf(w, "    %s %-8s %-40s %s  %s\n",
		ui.StatusIcon(string(task.Status)), ui.BoldMagenta(id), title, critical, span)
}

// PrintDelays writes the delay status of every task, worst first.
func (r *Reporter) PrintDelays(w io.Writer) {
	delays := r.Delays()

	counts := make(map[delay.Status]int)
	for _, d := range delays {
		counts[d.Status]++
	}

	fmt.Fprintf(w, "⏱  %s\n", ui.BoldCyan("Delay Report"))
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n\n",
		ui.Red(fmt.Sprintf("%d delayed", counts[delay.Delayed])),
		ui.Yellow(fmt.Sprintf("%d at risk", counts[delay.AtRisk])),
		ui.Magenta(fmt.Sprintf("%d finished late", counts[delay.CompletedLate])),
		ui.Green(fmt.Sprintf("%d on track", counts[delay.OnTrack])),
		ui.Dim(fmt.Sprintf("%d unknown", counts[delay.Unknown])))

	for _, d := range delays {
		due := ui.Dim("no planned end")
		if d.PlannedEnd != nil {
			due = ui.Dim("due " + d.PlannedEnd.Format("2006-01-02"))
		}
		company := ""
		if d.AssignedCompany != "" {
			company = ui.Dim("(" + d.AssignedCompany + ")")
		}
		fmt.Fprintf(w, "    %s %-8s %-18s %-40s %s %s\n",
			ui.StatusIcon(string(d.Status)), ui.BoldMagenta(d.TaskID),
			ui.DelayStatus(string(d.Status)), d.Title, due, company)
	}
}

// TaskDelay is the delay classification of one task.
type TaskDelay struct {
	TaskID          string       `json:"task_id"`
	Title           string       `json:"title"`
	Status          delay.Status `json:"status"`
	PlannedEnd      *time.Time   `json:"planned_end,omitempty"`
	AssignedCompany string       `json:"assigned_company,omitempty"`
}

var severity = map[delay.Status]int{
	delay.Delayed:         0,
	delay.AtRisk:          1,
	delay.CompletedLate:   2,
	delay.OnTrack:         3,
	delay.CompletedOnTime: 4,
	delay.Unknown:         5,
}

// Delays classifies every task, worst status first and by id within a
// status. The clock is read once per task.
func (r *Reporter) Delays() []TaskDelay {
	out := make([]TaskDelay, 0, len(r.Graph.Tasks))
	for _, id := range r.Graph.IDs() {
		task := r.Graph.Tasks[id]
		out = append(out, TaskDelay{
			TaskID:          id,
			Title:           task.Title,
			Status:          r.Classifier.Task(task),
			PlannedEnd:      task.PlannedEnd,
			AssignedCompany: task.AssignedCompany,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return severity[out[i].Status] < severity[out[j].Status]
	})
	return out
}

// JSON returns the machine-readable schedule, including delay statuses.
func (r *Reporter) JSON() ([]byte, error) {
	type taskOut struct {
		TaskID          string           `json:"task_id"`
		Title           string           `json:"title"`
		Status          graph.TaskStatus `json:"status"`
		DelayStatus     delay.Status     `json:"delay_status"`
		AssignedCompany string           `json:"assigned_company,omitempty"`
		Duration        float64          `json:"duration"`
		ES              float64          `json:"earliest_start"`
		EF              float64          `json:"earliest_finish"`
		LS              float64          `json:"latest_start"`
		LF              float64          `json:"latest_finish"`
		Float           float64          `json:"total_float"`
		IsCritical      bool             `json:"is_critical"`
		Wave            int              `json:"wave"`
	}

	type output struct {
		ProjectDuration float64    `json:"project_duration"`
		CriticalPath    []string   `json:"critical_path"`
		Waves           []cpm.Wave `json:"waves"`
		Tasks           []taskOut  `json:"tasks"`
	}

	o := output{
		ProjectDuration: r.Result.ProjectDuration,
		CriticalPath:    r.Result.CriticalPath,
		Waves:           r.Result.Waves,
		Tasks:           make([]taskOut, 0, len(r.Result.TopoOrder)),
	}

	for _, id := range r.Result.TopoOrder {
		task := r.Graph.Tasks[id]
		ts := r.Result.Tasks[id]
		o.Tasks = append(o.Tasks, taskOut{
			TaskID:          id,
			Title:           task.Title,
			Status:          task.Status,
			DelayStatus:     r.Classifier.Task(task),
			AssignedCompany: task.AssignedCompany,
			Duration:        ts.Duration,
			ES:              ts.ES,
			EF:              ts.EF,
			LS:              ts.LS,
			LF:              ts.LF,
			Float:           ts.Float,
			IsCritical:      ts.IsCritical,
			Wave:            ts.Wave,
		})
	}

	return json.MarshalIndent(o, "", "  ")
}

// PrintASCII writes the dependency graph wave by wave.
func (r *Reporter) PrintASCII(w io.Writer) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range r.Result.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d %s\n", ui.Cyan("──"), wave.Index+1, ui.Cyan("──────────────────────────────"))
		for _, id := range wave.TaskIDs {
			crit := " "
			if r.Result.Tasks[id].IsCritical {
				crit = ui.BoldYellow("⚡")
			}
			fmt.Fprintf(w, "  %s [%s] %s\n", crit, ui.BoldMagenta(id), r.Graph.Tasks[id].Title)

			for _, l := range r.Graph.Succ[id] {
				fmt.Fprintf(w, "      %s %s %s\n", ui.Dim("└──→"), ui.Magenta(l.SuccessorID), ui.Dim(linkLabel(l)))
			}
		}
		fmt.Fprintln(w)
	}
}

// PrintDOT writes the graph in Graphviz DOT format with the critical
// path highlighted.
func (r *Reporter) PrintDOT(w io.Writer) {
	fmt.Fprintln(w, "digraph renoplan {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, id := range r.Graph.IDs() {
		task := r.Graph.Tasks[id]
		label := fmt.Sprintf("%s\\n%s\\n%sd", id, dotEscape(task.Title), days(task.DurationDays))
		attrs := fmt.Sprintf(`label="%s"`, label)
		if ts, ok := r.Result.Tasks[id]; ok && ts.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}

	fmt.Fprintln(w)

	for _, l := range r.Graph.Links {
		attrs := []string{fmt.Sprintf("label=%q", linkLabel(l))}
		from, to := r.Result.Tasks[l.PredecessorID], r.Result.Tasks[l.SuccessorID]
		if from != nil && from.IsCritical && to != nil && to.IsCritical {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		fmt.Fprintf(w, "  %q -> %q [%s];\n", l.PredecessorID, l.SuccessorID, strings.Join(attrs, ", "))
	}

	fmt.Fprintln(w, "}")
}

// PrintScope writes a Scope Confidence result with its factor breakdown.
func PrintScope(w io.Writer, res sci.Result) {
	fmt.Fprintf(w, "📐 %s  %s  %s\n",
		ui.BoldCyan("Scope Confidence"),
		ui.Bold(fmt.Sprintf("%.2f", res.Score)),
		ui.TierBadge(string(res.Tier)))
	fmt.Fprintln(w)
	for _, f := range sci.Factors {
		v := res.Breakdown[f]
		fmt.Fprintf(w, "    %-20s %s %s\n", f, bar(v, 20), ui.Dim(fmt.Sprintf("%3.0f%%", v*100)))
	}
}

// PrintMilestones writes the payment schedule. Amounts are formatted for
// locale and prefixed with the currency code.
func PrintMilestones(w io.Writer, ms []milestone.Milestone, currencyCode, locale string) {
	p := message.NewPrinter(language.Make(locale))

	fmt.Fprintf(w, "💵 %s\n", ui.BoldCyan("Payment Milestones"))
	if len(ms) == 0 {
		fmt.Fprintln(w, ui.Dim("    no step triggers payment"))
		return
	}

	total := 0.0
	for _, m := range ms {
		total += m.Amount
		fmt.Fprintf(w, "    %s %-40s %s  %s\n",
			ui.BoldMagenta(fmt.Sprintf("#%-3d", m.StepNumber)), m.Label,
			ui.Dim(p.Sprintf("%6.2f%%", m.Percent)),
			ui.Bold(p.Sprintf("%s %.2f", currencyCode, m.Amount)))
	}
	fmt.Fprintf(w, "    %s %s\n", ui.Dim("total"), ui.BoldGreen(p.Sprintf("%s %.2f", currencyCode, total)))
}

// PrintVariance writes a baseline comparison.
func PrintVariance(w io.Writer, v *baseline.Variance) {
	fmt.Fprintf(w, "📊 %s %s\n", ui.BoldCyan("Baseline Variance"), ui.Dim("(baseline "+v.BaselineAt.Format("2006-01-02 15:04")+")"))

	delta := ui.Green(signed(v.DurationDelta) + " days")
	if v.DurationDelta > 0 {
		delta = ui.BoldRed(signed(v.DurationDelta) + " days")
	}
	fmt.Fprintf(w, "Project duration: %s\n\n", delta)

	for _, tv := range v.Tasks {
		if tv.StartSlip == 0 && tv.FinishSlip == 0 && !tv.CriticalityChanged() {
			continue
		}
		note := ""
		switch {
		case tv.CriticalityChanged() && tv.IsCritical:
			note = ui.BoldYellow("⚡ now critical")
		case tv.CriticalityChanged():
			note = ui.Dim("left critical path")
		}
		finish := ui.Green(signed(tv.FinishSlip))
		if tv.FinishSlip > 0 {
			finish = ui.Red(signed(tv.FinishSlip))
		}
		fmt.Fprintf(w, "    %-8s start %s  finish %s  %s\n", ui.BoldMagenta(tv.TaskID), signed(tv.StartSlip), finish, note)
	}

	for _, id := range v.Added {
		fmt.Fprintf(w, "    %s %s\n", ui.Green("+"), ui.BoldMagenta(id))
	}
	for _, id := range v.Removed {
		fmt.Fprintf(w, "    %s %s\n", ui.Red("-"), ui.BoldMagenta(id))
	}
}

func linkLabel(l graph.Link) string {
	abbrev := map[graph.LinkType]string{
		graph.FinishToStart:  "FS",
		graph.StartToStart:   "SS",
		graph.FinishToFinish: "FF",
		graph.StartToFinish:  "SF",
	}[l.Type]
	if l.LagDays != 0 {
		return abbrev + signed(l.LagDays)
	}
	return abbrev
}

func days(v float64) string {
	return fmt.Sprintf("%g", roundTo(v, 2))
}

func signed(v float64) string {
	return fmt.Sprintf("%+g", roundTo(v, 2))
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	r := math.Round(v*shift) / shift
	if r == 0 {
		return 0
	}
	return r
}

func bar(v float64, width int) string {
	n := int(v*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return ui.Cyan(strings.Repeat("█", n)) + ui.Dim(strings.Repeat("░", width-n))
}

// truncate shortens s to at most n characters, cutting on rune
// boundaries.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
