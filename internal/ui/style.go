package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintLogo renders the colored renoplan banner to stderr.
func PrintLogo() {
	w := os.Stderr
	frame := color.New(color.FgCyan)
	roof := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	roof.Fprintln(w, "        /\\")
	roof.Fprintln(w, "       /  \\")
	roof.Fprintln(w, "      /    \\")
	frame.Fprintln(w, "   +----------+")
	brand.Fprintln(w, "   | RENOPLAN |")
	frame.Fprintln(w, "   +----------+")
	tag.Fprintf(w, "   %s Renovation schedules, delays and scope\n", Dim("🏗"))
	fmt.Fprintln(w)
}

// StatusIcon returns a colored icon for a task or delay status.
func StatusIcon(status string) string {
	switch status {
	case "completed", "completed_on_time", "on_track":
		return Green("✓")
	case "in_progress":
		return Cyan("●")
	case "at_risk":
		return Yellow("▲")
	case "delayed", "completed_late":
		return Red("✗")
	case "blocked":
		return Red("⊘")
	default:
		return Dim("◌")
	}
}

// DelayStatus returns a colored delay status label.
func DelayStatus(status string) string {
	switch status {
	case "on_track", "completed_on_time":
		return Green(status)
	case "at_risk":
		return BoldYellow(status)
	case "delayed", "completed_late":
		return BoldRed(status)
	default:
		return Dim(status)
	}
}

// TierBadge returns a colored Scope Confidence tier.
func TierBadge(tier string) string {
	switch tier {
	case "HIGH":
		return BoldGreen(tier)
	case "MEDIUM":
		return BoldYellow(tier)
	default:
		return BoldRed(tier)
	}
}

// WaveStatus returns a colored wave label.
func WaveStatus(critical bool) string {
	if critical {
		return BoldYellow("critical")
	}
	return Dim("has float")
}
