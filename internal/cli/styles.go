package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/himanishpuri/SpeechGate/internal/report"
	"github.com/himanishpuri/SpeechGate/pkg/models"
)

// Color palette
var (
	primaryColor  = lipgloss.Color("#1F6FEB")
	acceptedColor = lipgloss.Color("#00AA00")
	rejectedColor = lipgloss.Color("#CC3333")
	mutedColor    = lipgloss.Color("#888888")
	textColor     = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rejectedColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(24)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	AcceptedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acceptedColor)

	RejectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rejectedColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("SpeechGate"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

func keyValue(w io.Writer, key string, value string) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(key), value)
}

// PrintSummary renders the end-of-run report.
func PrintSummary(w io.Writer, runID string, s report.Summary) {
	fmt.Fprintln(w, TitleStyle.Render("Filtering Summary"))

	if runID != "" {
		keyValue(w, "Run:", ValueStyle.Render(runID))
	}
	keyValue(w, "Total files processed:", ValueStyle.Render(fmt.Sprint(s.Total)))
	if s.Total == 0 {
		return
	}

	rejectedRate := 100 * float64(s.Rejected) / float64(s.Total)
	keyValue(w, "Accepted:", AcceptedStyle.Render(fmt.Sprintf("%d (%.1f%%)", s.Accepted, 100*s.AcceptanceRate)))
	keyValue(w, "Rejected:", RejectedStyle.Render(fmt.Sprintf("%d (%.1f%%)", s.Rejected, rejectedRate)))
	keyValue(w, "Accepted audio:", ValueStyle.Render(fmt.Sprintf("%.2f h of %.2f h", s.AcceptedHours, s.TotalHours)))

	if len(s.Reasons) > 0 {
		fmt.Fprintln(w, SectionStyle.Render("Rejection reasons"))
		for _, rc := range s.Reasons {
			keyValue(w, "  "+rc.Reason+":", fmt.Sprintf("%d (%.1f%%)", rc.Count, rc.Percent))
		}
	}

	q := s.QualityScore
	fmt.Fprintln(w, SectionStyle.Render("Quality score"))
	keyValue(w, "  Mean:", fmt.Sprintf("%.2f", q.Mean))
	keyValue(w, "  Median:", fmt.Sprintf("%.2f", q.Median))
	keyValue(w, "  Std Dev:", fmt.Sprintf("%.2f", q.Std))
	keyValue(w, "  Min:", fmt.Sprintf("%.2f", q.Min))
	keyValue(w, "  Max:", fmt.Sprintf("%.2f", q.Max))

	printGroups(w, s.Groups)
}

var groupLabels = map[string]string{
	"quality_score":    "Quality score",
	"snr_db":           "SNR (dB)",
	"silence_ratio":    "Silence ratio",
	"dynamic_range_db": "Dynamic range (dB)",
}

// printGroups renders accepted and rejected means side by side.
func printGroups(w io.Writer, g report.GroupStats) {
	if len(g.Accepted) == 0 && len(g.Rejected) == 0 {
		return
	}

	fmt.Fprintln(w, SectionStyle.Render("Accepted vs rejected (mean)"))
	for _, name := range []string{"quality_score", "snr_db", "silence_ratio", "dynamic_range_db"} {
		keyValue(w, "  "+groupLabels[name]+":", fmt.Sprintf("%s  %s",
			AcceptedStyle.Render(groupMean(g.Accepted, name)),
			RejectedStyle.Render(groupMean(g.Rejected, name))))
	}
	if g.ScoreGap != 0 {
		keyValue(w, "  Score difference:", ValueStyle.Render(fmt.Sprintf("%.2f", g.ScoreGap)))
	}
}

func groupMean(stats map[string]report.Stats, name string) string {
	s, ok := stats[name]
	if !ok || s.Count == 0 {
		return fmt.Sprintf("%8s", "-")
	}
	return fmt.Sprintf("%8.2f", s.Mean)
}

// PrintComparison renders one row per threshold preset.
func PrintComparison(w io.Writer, runID string, rows []report.Comparison) {
	fmt.Fprintln(w, TitleStyle.Render("Threshold Comparison"))
	if runID != "" {
		keyValue(w, "Run:", ValueStyle.Render(runID))
	}

	header := fmt.Sprintf("%-10s  %8s  %11s  %10s  %10s", "PRESET", "MIN SNR", "MAX SILENCE", "ACCEPTED", "MEAN SCORE")
	fmt.Fprintln(w, SectionStyle.Render(header))
	for _, c := range rows {
		accepted := fmt.Sprintf("%9.1f%%", 100*c.AcceptanceRate)
		fmt.Fprintf(w, "%-10s  %8.1f  %11.2f  %s  %10.2f\n",
			c.Preset, c.MinSNRDB, c.MaxSilenceRatio, AcceptedStyle.Render(accepted), c.MeanAcceptedScore)
	}
}

// PrintRuns renders a table of stored runs.
func PrintRuns(w io.Writer, runs []models.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, KeyStyle.UnsetWidth().Render("No runs stored."))
		return
	}

	header := fmt.Sprintf("%-36s  %-20s  %8s  %8s  %8s", "RUN", "STARTED", "TOTAL", "ACCEPTED", "REJECTED")
	fmt.Fprintln(w, SectionStyle.UnsetMarginTop().Render(header))
	for _, r := range runs {
		state := fmt.Sprint(r.Total)
		if r.FinishedAt == nil {
			state = "running"
		}
		fmt.Fprintf(w, "%-36s  %-20s  %8s  %8d  %8d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), state, r.Accepted, r.Rejected)
	}
}

// PrintResults lists the files of a run, one per line with their reasons.
func PrintResults(w io.Writer, results []models.FileResult) {
	for _, r := range results {
		if r.IsAccepted {
			fmt.Fprintf(w, "%s  %s  %.2f\n", AcceptedStyle.Render("ACCEPT"), r.FilePath, r.QualityScore)
			continue
		}
		fmt.Fprintf(w, "%s  %s  %s\n", RejectedStyle.Render("REJECT"), r.FilePath,
			KeyStyle.UnsetWidth().Render(strings.Join(r.RejectionReasons, report.ReasonSeparator)))
	}
}
