package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/ipc"
)

// ANSI escape codes for terminal formatting.
const (
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	reset  = "\033[0m"
)

// FormatSessionReport formats a SessionReport as a terminal-friendly string.
// Uses ANSI color codes: >70% AI probability = red, 30-70% = yellow,
// <30% = green.
func FormatSessionReport(r *SessionReport) string {
	var b strings.Builder

	// Header.
	b.WriteString(bold + "Edit Attribution Report" + reset + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	att := r.Attribution

	// Headline metrics.
	b.WriteString(fmt.Sprintf("Session:        %s\n", r.SessionID))
	b.WriteString(fmt.Sprintf("File:           %s\n", r.FileURI))
	b.WriteString(fmt.Sprintf("Events:         %d\n", r.EventCount))
	b.WriteString(fmt.Sprintf("Source:         %s%s%s\n", bold, att.Source, reset))
	b.WriteString(fmt.Sprintf("AI probability: %s%s%.1f%%%s\n",
		bold, colorForProb(att.AIProbability), att.AIProbability*100, reset))
	b.WriteString(fmt.Sprintf("Confidence:     %.1f%%\n\n", att.Confidence*100))

	// Per-heuristic score table.
	b.WriteString(bold + "Heuristic Scores" + reset + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(fmt.Sprintf("%-20s %8s\n", "Heuristic", "Score"))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, row := range scoreRows(att.Scores) {
		b.WriteString(fmt.Sprintf("%-20s %s%8.3f%s\n",
			row.name, colorForProb(row.score), row.score, reset))
	}
	b.WriteString(fmt.Sprintf("%-20s %8.3f\n\n", "weighted total", att.TotalScore))

	// Evidence highlights.
	ev := att.Evidence
	if len(ev.BulkChanges) > 0 || len(ev.Bursts) > 0 || len(ev.ExternalIndicators) > 0 {
		b.WriteString(bold + "Evidence" + reset + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		if len(ev.BulkChanges) > 0 {
			b.WriteString(fmt.Sprintf("Bulk changes:        %d\n", len(ev.BulkChanges)))
		}
		if len(ev.Bursts) > 0 {
			b.WriteString(fmt.Sprintf("Typing bursts:       %d\n", len(ev.Bursts)))
		}
		for _, ind := range ev.ExternalIndicators {
			b.WriteString(fmt.Sprintf("External indicator:  %s\n", ind))
		}
		for _, p := range ev.SuspiciousPatterns {
			b.WriteString(fmt.Sprintf("Suspicious pattern:  %s\n", p))
		}
		b.WriteString("\n")
	}

	// Bucketed timeline summary.
	sum := r.BucketSummary
	if sum.TotalBuckets > 0 {
		b.WriteString(bold + "Timeline" + reset + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		b.WriteString(fmt.Sprintf("Buckets:  %d total, %d active, %d empty\n",
			sum.TotalBuckets, sum.ActiveBuckets, sum.EmptyBuckets))
		b.WriteString(fmt.Sprintf("Span:     %s\n", sum.Span))
		b.WriteString(fmt.Sprintf("AI prob:  mean %.1f%%, max %.1f%%, rollup %s%.1f%%%s\n\n",
			sum.MeanAIProbability*100, sum.MaxAIProbability*100,
			colorForProb(r.Rollup), r.Rollup*100, reset))
	}

	// Review assessment.
	rv := r.Review
	b.WriteString(bold + "Review Quality" + reset + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(fmt.Sprintf("Score:      %.1f / 10 (%s)\n", rv.OverallScore, rv.QualityLevel))
	b.WriteString(fmt.Sprintf("Confidence: %.1f%%\n", rv.Confidence*100))
	b.WriteString(fmt.Sprintf("Breakdown:  time %.1f, iteration %.1f, refinement %.1f, thoughtfulness %.1f\n",
		rv.Breakdown.TimeInvestment, rv.Breakdown.Iteration,
		rv.Breakdown.Refinement, rv.Breakdown.Thoughtfulness))

	return b.String()
}

// FormatTrace formats the decision trace as a terminal-friendly string,
// one line per step.
func FormatTrace(trace []detection.TraceStep) string {
	var b strings.Builder

	b.WriteString(bold + "Decision Trace" + reset + "\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for i, step := range trace {
		b.WriteString(fmt.Sprintf("%2d. %-18s", i+1, step.Step))
		switch {
		case step.Heuristic != nil:
			h := step.Heuristic
			b.WriteString(fmt.Sprintf(" score %.3f (%d/%d events)", h.Score, h.EventsMatched, h.EventsTotal))
		case step.Combined != nil:
			b.WriteString(fmt.Sprintf(" total %.3f", step.Combined.Total))
		case step.Decision != nil:
			d := step.Decision
			b.WriteString(fmt.Sprintf(" %s (confidence %.2f)", d.Source, d.Confidence))
		}
		if step.Reasoning != "" {
			b.WriteString("  " + step.Reasoning)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatStatus formats daemon StatusData as a terminal-friendly table.
func FormatStatus(status *ipc.StatusData) string {
	var b strings.Builder

	b.WriteString(bold + "Edit Attribution - Daemon Status" + reset + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	b.WriteString(fmt.Sprintf("%-20s %s\n", "Uptime:", status.Uptime))
	b.WriteString(fmt.Sprintf("%-20s %s\n", "DB Size:", humanBytes(status.DBSizeBytes)))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Events Ingested:", status.EventsIngested))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Attributions:", status.AttributionsCount))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Assessments:", status.AssessmentsCount))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Git Commits:", status.GitCommitsCount))

	if status.LastSource != "" {
		b.WriteString(fmt.Sprintf("%-20s %s (%s%.1f%%%s AI)\n", "Last Attribution:",
			status.LastSource, colorForProb(status.LastAIProbability),
			status.LastAIProbability*100, reset))
	}

	if len(status.WatchedLogs) > 0 {
		b.WriteString(fmt.Sprintf("\n%sWatched Logs:%s\n", bold, reset))
		for _, p := range status.WatchedLogs {
			b.WriteString(fmt.Sprintf("  %s\n", p))
		}
	} else {
		b.WriteString(fmt.Sprintf("%-20s %s\n", "Watched Logs:", "(none)"))
	}

	return b.String()
}

// FormatMarkdown renders the report as a Markdown summary suitable for
// pasting into a PR description.
func FormatMarkdown(r *SessionReport) string {
	var b strings.Builder
	att := r.Attribution

	b.WriteString("## Edit Attribution\n\n")
	b.WriteString(fmt.Sprintf("**Session** `%s` — **%s** (%.1f%% AI probability, %.1f%% confidence)\n\n",
		r.SessionID, att.Source, att.AIProbability*100, att.Confidence*100))

	b.WriteString("| Heuristic | Score |\n|---|---|\n")
	for _, row := range scoreRows(att.Scores) {
		b.WriteString(fmt.Sprintf("| %s | %.3f |\n", row.name, row.score))
	}
	b.WriteString(fmt.Sprintf("| **weighted total** | **%.3f** |\n\n", att.TotalScore))

	rv := r.Review
	b.WriteString(fmt.Sprintf("**Review quality**: %.1f/10 (%s, %.0f%% confidence)\n",
		rv.OverallScore, rv.QualityLevel, rv.Confidence*100))

	sum := r.BucketSummary
	if sum.TotalBuckets > 0 {
		b.WriteString(fmt.Sprintf("\n**Timeline**: %d buckets over %s, rollup %.1f%% AI\n",
			sum.TotalBuckets, sum.Span, r.Rollup*100))
	}
	return b.String()
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

type scoreRow struct {
	name  string
	score float64
}

// scoreRows returns the heuristic scores in fixed display order.
func scoreRows(s detection.HeuristicScores) []scoreRow {
	return []scoreRow{
		{"bulk-insertion", s.BulkInsertion},
		{"typing-speed", s.TypingSpeed},
		{"paste-pattern", s.PastePattern},
		{"external-tool", s.ExternalTool},
		{"content-pattern", s.ContentPattern},
		{"timing-anomaly", s.TimingAnomaly},
	}
}

// colorForProb returns an ANSI color code for an AI probability in [0,1].
// >0.7 = red, 0.3-0.7 = yellow, <0.3 = green.
func colorForProb(p float64) string {
	switch {
	case p > 0.7:
		return red
	case p >= 0.3:
		return yellow
	default:
		return green
	}
}

// humanBytes formats bytes as a human-readable string (KB, MB, GB).
func humanBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
