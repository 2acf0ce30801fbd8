package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// keyMap holds the confirmation screen bindings.
type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var keys = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y", "enter"),
		key.WithHelp("y/enter", "quarantine"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "q", "esc", "ctrl+c"),
		key.WithHelp("n/q", "cancel"),
	),
}

const (
	sizeWidth   = 10
	reasonWidth = 28
	minPathCol  = 20
	chromeRows  = 9
	// headerRows is the table header plus its bottom border.
	headerRows = 2
)

// ConfirmModel lists the files a clean would quarantine and asks for
// confirmation. The whole AutoSafe bucket is quarantined or nothing is.
type ConfirmModel struct {
	table     table.Model
	root      string
	items     []types.FileItem
	total     int64
	review    int
	confirmed bool
	done      bool
	width     int
}

// NewConfirmModel builds the screen for a triage result.
func NewConfirmModel(r *types.TriageResult) ConfirmModel {
	m := ConfirmModel{
		root:   r.Root,
		items:  r.AutoSafe,
		total:  r.ReclaimableBytes(),
		review: len(r.NeedsReview),
		width:  100,
	}
	m.table = table.New(
		table.WithColumns(m.columns()),
		table.WithRows(m.rows()),
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
		table.WithHeight(min(len(r.AutoSafe), 15)+headerRows),
	)
	return m
}

func (m ConfirmModel) pathWidth() int {
	return max(m.width-sizeWidth-reasonWidth-8, minPathCol)
}

func (m ConfirmModel) columns() []table.Column {
	return []table.Column{
		{Title: "Size", Width: sizeWidth},
		{Title: "Reason", Width: reasonWidth},
		{Title: "Path", Width: m.pathWidth()},
	}
}

func (m ConfirmModel) rows() []table.Row {
	rows := make([]table.Row, len(m.items))
	for i, item := range m.items {
		rel, err := filepath.Rel(m.root, item.Path)
		if err != nil {
			rel = item.Path
		}
		rows[i] = table.Row{types.FormatSize(item.Size), item.Reason, truncateLeft(rel, m.pathWidth())}
	}
	return rows
}

// Init initializes the model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses and resizes.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(m.columns())
		m.table.SetRows(m.rows())
		m.table.SetHeight(max(min(len(m.items), msg.Height-chromeRows), 1) + headerRows)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Confirm):
			m.confirmed = true
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, keys.Cancel):
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the screen.
func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quarantine files under " + m.root))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%d files, %s reclaimable\n",
		len(m.items), sizeStyle.Render(types.FormatSize(m.total)))
	if m.review > 0 {
		b.WriteString(warningTextStyle.Render(fmt.Sprintf("%d files need review and will be left in place", m.review)))
		b.WriteString("\n")
	}
	b.WriteString(mutedTextStyle.Render("Files are moved, not deleted. Undo with: reclaim restore latest"))
	b.WriteString("\n")
	b.WriteString(tableBoxStyle.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		keyHint(keys.Confirm), "   ", keyHint(keys.Cancel), "   ",
		keyStyle.Render("↑/↓"), " ", keyDescStyle.Render("scroll")))
	b.WriteString("\n")
	return b.String()
}

func keyHint(k key.Binding) string {
	h := k.Help()
	return keyStyle.Render(h.Key) + " " + keyDescStyle.Render(h.Desc)
}

// Confirmed reports whether the user accepted the clean.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// truncateLeft keeps the tail of s, which holds the file name.
func truncateLeft(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width < 4 {
		return s
	}
	return "…" + string(r[len(r)-width+1:])
}

// Confirm runs the confirmation screen and reports the user's choice.
func Confirm(r *types.TriageResult) (bool, error) {
	final, err := tea.NewProgram(NewConfirmModel(r), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}
