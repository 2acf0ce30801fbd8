package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	switch r.Kind {
	case KindTriage:
		f.triage(w, r)
	case KindAction:
		f.action(w, r)
	case KindList:
		f.list(w, r)
	case KindManifest:
		f.manifest(w, r)
	case KindVerify:
		f.verify(w, r)
	case KindSummary:
		f.summary(w, r)
	default:
		return fmt.Errorf("unknown report kind %d", r.Kind)
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) triage(w *bytes.Buffer, r *Report) {
	t := r.Triage

	header := []string{
		field("Root:", ValueStyle.Render(t.Root)),
		field("Reclaimable:", SizeStyle.Render(types.FormatSize(t.ReclaimableBytes()))+
			MutedStyle.Render(fmt.Sprintf(" in %d files", len(t.AutoSafe)))),
	}
	if r.Duration > 0 {
		header = append(header, field("Scanned:", ValueStyle.Render(
			fmt.Sprintf("%d entries in %s", t.Total(), formatDuration(r.Duration)))))
	}
	if r.FreeBytes > 0 {
		header = append(header, field("Free:", ValueStyle.Render(types.FormatSize(r.FreeBytes))))
	}
	header = append(header, daemonStatus(r.DaemonUp))
	w.WriteString(HeaderBox.Render(strings.Join(header, "  ")))
	w.WriteString("\n")

	w.WriteString(section("Auto-safe", types.AutoSafe, t.AutoSafe))
	w.WriteString(section("Needs review", types.NeedsReview, t.NeedsReview))

	// Directories and protected files are usually the bulk of a walk.
	w.WriteString(verdictStyle(types.DoNotTouch.String()).Bold(true).Render(
		fmt.Sprintf("Do not touch (%d)", len(t.DoNotTouch))))
	w.WriteString(MutedStyle.Render("  use -o plain to list"))
	w.WriteString("\n")

	hint := "Run `reclaim clean` to quarantine auto-safe files"
	if r.DryRun {
		hint = "Dry run: nothing was moved"
	}
	w.WriteString(FooterBox.Render(strings.Join([]string{
		field("Safe:", SafeStyle.Render(fmt.Sprint(len(t.AutoSafe)))),
		field("Review:", ReviewStyle.Render(fmt.Sprint(len(t.NeedsReview)))),
		field("Protected:", DangerStyle.Render(fmt.Sprint(len(t.DoNotTouch)))),
		MutedStyle.Render(hint),
	}, "  ")))
	w.WriteString("\n")
}

func section(title string, verdict types.Verdict, items []types.FileItem) string {
	var sb strings.Builder
	sb.WriteString(verdictStyle(verdict.String()).Bold(true).Render(fmt.Sprintf("%s (%d)", title, len(items))))
	sb.WriteString("\n")
	if len(items) == 0 {
		sb.WriteString(MutedStyle.Render("  none"))
		sb.WriteString("\n\n")
		return sb.String()
	}

	sizes := make([]string, len(items))
	width := 8
	for i, item := range items {
		sizes[i] = types.FormatSize(item.Size)
		width = max(width, len(sizes[i]))
	}
	for i, item := range items {
		sb.WriteString("  ")
		sb.WriteString(SizeStyle.Render(padLeft(sizes[i], width)))
		sb.WriteString("  ")
		sb.WriteString(PathStyle.Render(item.Path))
		if item.Reason != "" {
			sb.WriteString("  ")
			sb.WriteString(MutedStyle.Render(item.Reason))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *PrettyFormatter) action(w *bytes.Buffer, r *Report) {
	a := r.Action

	var lines []string
	if a.Success {
		lines = append(lines, SafeStyle.Bold(true).Render(a.Message))
	} else {
		lines = append(lines, DangerStyle.Bold(true).Render(a.Message))
	}
	if a.ManifestID != "" {
		lines = append(lines, field("Manifest:", ValueStyle.Render(a.ManifestID)))
	}

	box := HeaderBox
	if !a.Success {
		box = ErrorBox
	}
	w.WriteString(box.Render(strings.Join(lines, "\n")))
	w.WriteString("\n")

	if len(a.Problems) > 0 {
		w.WriteString(ReviewStyle.Bold(true).Render("Problems:"))
		w.WriteString("\n")
		for _, p := range a.Problems {
			w.WriteString(ReviewStyle.Render("  " + p))
			w.WriteString("\n")
		}
	}
	if a.Success && a.ManifestID != "" && a.Moved > 0 {
		w.WriteString(MutedStyle.Render("Undo with `reclaim restore " + a.ManifestID + "`"))
		w.WriteString("\n")
	}
}

func (f *PrettyFormatter) list(w *bytes.Buffer, r *Report) {
	if len(r.Manifests) == 0 {
		w.WriteString(MutedStyle.Render("No manifests yet"))
		w.WriteString("\n")
		return
	}

	w.WriteString(fmt.Sprintf("%s  %s  %s\n",
		TableHeaderStyle.Render(padRight("ID", 36)),
		TableHeaderStyle.Render(padRight("CREATED", 16)),
		TableHeaderStyle.Render("FILES / ROOT")))
	for _, s := range r.Manifests {
		c := s.Counts
		counts := SafeStyle.Render(fmt.Sprintf("%d moved", c.Moved))
		if c.Restored > 0 {
			counts += MutedStyle.Render(fmt.Sprintf(", %d restored", c.Restored))
		}
		if c.Failed > 0 {
			counts += DangerStyle.Render(fmt.Sprintf(", %d failed", c.Failed))
		}
		w.WriteString(fmt.Sprintf("%s  %s  %s %s  %s\n",
			ValueStyle.Render(s.ID),
			MutedStyle.Render(padRight(humanize.Time(s.CreatedAt), 16)),
			counts,
			SizeStyle.Render(types.FormatSize(c.Bytes)),
			PathStyle.Render(s.SourceRoot)))
	}
}

func (f *PrettyFormatter) manifest(w *bytes.Buffer, r *Report) {
	m := r.Manifest
	c := m.Counts()

	header := []string{
		field("Manifest:", ValueStyle.Render(m.ID)),
		field("Root:", ValueStyle.Render(m.SourceRoot)),
		field("Created:", MutedStyle.Render(m.CreatedAt.Local().Format("2006-01-02 15:04:05")+
			" ("+humanize.Time(m.CreatedAt)+")")),
		field("Quarantined:", SizeStyle.Render(types.FormatSize(c.Bytes))+
			MutedStyle.Render(fmt.Sprintf(" in %d files", c.Moved))),
	}
	w.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	w.WriteString("\n")

	for _, e := range m.Entries {
		status := string(e.Status)
		w.WriteString("  ")
		w.WriteString(verdictStyle(status).Render(padRight(status, 8)))
		w.WriteString(" ")
		w.WriteString(SizeStyle.Render(padLeft(types.FormatSize(e.SizeBytes), 10)))
		w.WriteString("  ")
		w.WriteString(PathStyle.Render(e.OriginalPath))
		if e.Error != "" {
			w.WriteString("  ")
			w.WriteString(MutedStyle.Render(e.Error))
		}
		w.WriteString("\n")
	}
}

func (f *PrettyFormatter) verify(w *bytes.Buffer, r *Report) {
	v := r.Verify

	summary := fmt.Sprintf("Checked %d quarantined files in %d manifests", v.Checked, len(v.Manifests))
	if v.OK() {
		w.WriteString(HeaderBox.Render(SafeStyle.Bold(true).Render("All quarantined files intact") +
			"\n" + MutedStyle.Render(summary)))
		w.WriteString("\n")
		return
	}

	w.WriteString(ErrorBox.Render(DangerStyle.Bold(true).Render("Quarantine problems found") +
		"\n" + MutedStyle.Render(summary)))
	w.WriteString("\n")

	_, rows := r.Rows()
	for _, row := range rows {
		w.WriteString("  ")
		w.WriteString(verdictStyle(row[0]).Render(padRight(row[0], 8)))
		w.WriteString(" ")
		w.WriteString(PathStyle.Render(row[1]))
		w.WriteString("\n")
	}
}

func (f *PrettyFormatter) summary(w *bytes.Buffer, r *Report) {
	if r.SummaryError != "" {
		w.WriteString(ErrorBox.Render(DangerStyle.Render(r.SummaryError)))
		w.WriteString("\n")
		return
	}
	w.WriteString(HeaderBox.Render(TitleStyle.Render("Review summary") + "\n\n" + r.Summary))
	w.WriteString("\n")
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + value
}

// daemonStatus returns a styled string indicating daemon status.
func daemonStatus(up bool) string {
	if !up {
		return MutedStyle.Render("daemon: off")
	}
	return LabelStyle.Render("daemon: ") + SafeStyle.Render("up")
}

// formatWarnings builds a warning block.
func formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(ReviewStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(ReviewStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
