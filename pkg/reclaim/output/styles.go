package output

import "github.com/charmbracelet/lipgloss"

// Color constants using ANSI 256-color palette.
const (
	// ColorPrimary is used for headers and sizes (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSafe marks files a clean may move and successful outcomes (green).
	ColorSafe = lipgloss.Color("42")

	// ColorReview marks files that need a human decision (orange/yellow).
	ColorReview = lipgloss.Color("214")

	// ColorDanger marks protected files, failures and corruption (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for reasons, hints and other secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

// Box styles for containing grouped content.
var (
	// HeaderBox frames the operation summary at the top of a report.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames totals and hints at the bottom of a report.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)

	// ErrorBox frames a failed operation.
	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDanger).
			Padding(0, 1)
)

// Text styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SafeStyle = lipgloss.NewStyle().
			Foreground(ColorSafe)

	ReviewStyle = lipgloss.NewStyle().
			Foreground(ColorReview)

	DangerStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// verdictStyle returns the style used for a verdict, status or problem label.
func verdictStyle(label string) lipgloss.Style {
	switch label {
	case "auto_safe", "moved", "restored":
		return SafeStyle
	case "needs_review", "missing", "orphan":
		return ReviewStyle
	case "do_not_touch", "failed", "corrupt", "error":
		return DangerStyle
	default:
		return MutedStyle
	}
}
