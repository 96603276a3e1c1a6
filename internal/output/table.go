// Package output provides terminal output utilities for depup.
//
// This package includes:
//   - Table rendering for outdated packages, run outcomes, run history,
//     and snapshots
//   - Progress bars and spinners for long-running npm operations
//
// All table rendering uses ASCII characters and ANSI color codes for
// terminal output. Progress indicators are thread-safe.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/depup/internal/engine"
	"github.com/blackwell-systems/depup/internal/risk"
	"github.com/blackwell-systems/depup/internal/sequencer"
	"github.com/blackwell-systems/depup/internal/store"
)

// ANSI color codes for tier and status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderOutdatedTable renders the discovery result in upgrade order.
func RenderOutdatedTable(records []*sequencer.Record) string {
	if len(records) == 0 {
		return "All dependencies are up to date.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-28s %-12s %-12s %-8s %-6s %s\n",
		"Package", "Current", "Latest", "Tier", "Type", "Ecosystem"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, r := range records {
		depType := "prod"
		if r.Dev {
			depType = "dev"
		}
		eco := r.Ecosystem
		if eco == "" {
			eco = "—"
		}

		tier := r.Tier.String()
		if IsColorEnabled() {
			sb.WriteString(fmt.Sprintf("%-28s %-12s %-12s %s%-8s%s %-6s %s\n",
				truncate(r.Name, 28), r.Current, r.Latest,
				tierColor(r.Tier), tier, colorReset, depType, eco))
		} else {
			sb.WriteString(fmt.Sprintf("%-28s %-12s %-12s %-8s %-6s %s\n",
				truncate(r.Name, 28), r.Current, r.Latest, tier, depType, eco))
		}
	}

	return sb.String()
}

// RenderTierSummary renders a one-line tier breakdown header.
// Format: "SAFE: 5 · LOW: 3 · MEDIUM: 2 · HIGH: 4"
func RenderTierSummary(records []*sequencer.Record) string {
	counts := make(map[risk.Tier]int)
	for _, r := range records {
		counts[r.Tier]++
	}

	var parts []string
	for _, tier := range []risk.Tier{risk.TierSafe, risk.TierLow, risk.TierMedium, risk.TierHigh, risk.TierUnknown} {
		n := counts[tier]
		if n == 0 && tier == risk.TierUnknown {
			continue
		}
		label := strings.ToUpper(tier.String())
		if IsColorEnabled() {
			parts = append(parts, fmt.Sprintf("%s%s%s: %d", tierColor(tier), label, colorReset, n))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %d", label, n))
		}
	}
	return strings.Join(parts, " · ")
}

// RenderOutcomeTable renders the per-package results of a run.
func RenderOutcomeTable(outcomes []engine.Outcome) string {
	if len(outcomes) == 0 {
		return "Nothing to upgrade.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-28s %-11s %-24s %s\n",
		"Package", "Status", "Change", "Notes"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, o := range outcomes {
		change := "—"
		if o.Old != "" && o.New != "" {
			change = o.Old + " → " + o.New
		}

		notes := o.Reason
		if o.Status == engine.StatusFailed {
			notes = fmt.Sprintf("[%s] %s", o.ReasonKind, o.Detail)
		}

		status := o.Status.String()
		if IsColorEnabled() {
			sb.WriteString(fmt.Sprintf("%-28s %s%-11s%s %-24s %s\n",
				truncate(o.Package, 28),
				statusColor(o.Status), status, colorReset,
				change, truncate(notes, 60)))
		} else {
			sb.WriteString(fmt.Sprintf("%-28s %-11s %-24s %s\n",
				truncate(o.Package, 28), status, change, truncate(notes, 60)))
		}
	}

	return sb.String()
}

// RenderRunSummary renders the one-line totals footer for a run.
func RenderRunSummary(upgraded, failed, skipped int, interrupted bool) string {
	s := fmt.Sprintf("Upgraded: %d · Failed: %d · Skipped: %d", upgraded, failed, skipped)
	if interrupted {
		s += " · interrupted"
	}
	return s
}

// RenderRunTable renders run history, newest first.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-38s %-14s %-11s %-9s %-7s %s\n",
		"Run", "Started", "Mode", "Upgraded", "Failed", "Skipped"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, r := range runs {
		mode := r.Mode
		if r.Interrupted {
			mode += "*"
		}
		sb.WriteString(fmt.Sprintf("%-38s %-14s %-11s %-9d %-7d %d\n",
			r.ID, formatRelativeTime(r.StartedAt), mode,
			r.Upgraded, r.Failed, r.Skipped))
	}

	return sb.String()
}

// RenderSnapshotTable renders the snapshot registry, newest first.
func RenderSnapshotTable(snapshots []*store.Snapshot) string {
	if len(snapshots) == 0 {
		return "No snapshots found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-15s %-6s %s\n",
		"ID", "Created", "Lock", "Reason"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, snap := range snapshots {
		lock := "no"
		if snap.HasLock {
			lock = "yes"
		}
		sb.WriteString(fmt.Sprintf("%-5d %-15s %-6s %s\n",
			snap.ID, formatRelativeTime(snap.CreatedAt), lock,
			truncate(snap.Reason, 40)))
	}

	return sb.String()
}

// tierColor returns the ANSI color code for a risk tier.
func tierColor(tier risk.Tier) string {
	switch tier {
	case risk.TierSafe:
		return colorGreen
	case risk.TierLow:
		return colorGreen
	case risk.TierMedium:
		return colorYellow
	case risk.TierHigh:
		return colorRed
	default:
		return colorGray
	}
}

// statusColor returns the ANSI color code for an outcome status.
func statusColor(status engine.Status) string {
	switch status {
	case engine.StatusSuccessful:
		return colorGreen
	case engine.StatusFailed:
		return colorRed
	default:
		return colorGray
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(diff.Hours() / 24 / 30)
		if months <= 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
