package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"recipeforge/pkg/recipe"
)

var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// lintModel is the bubbletea model for browsing lint findings. Findings
// can be filtered by severity; the cursor row shows the full message even
// when truncated in the table.
type lintModel struct {
	title  string
	all    []recipe.Issue
	shown  []recipe.Issue
	filter recipe.Severity // "" means show everything
	cursor int
	height int
	offset int
}

func newLintModel(r *recipe.Recipe, issues []recipe.Issue) lintModel {
	m := lintModel{
		title:  r.Package.Name + " " + r.Package.Version,
		all:    issues,
		height: 15,
	}
	m.applyFilter("")
	return m
}

func (m *lintModel) applyFilter(sev recipe.Severity) {
	m.filter = sev
	if sev == "" {
		m.shown = m.all
	} else {
		m.shown = recipe.FilterSeverity(m.all, sev)
	}
	m.cursor = 0
	m.offset = 0
}

func (m lintModel) Init() tea.Cmd {
	return nil
}

func (m lintModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.shown)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "e":
			if m.filter == recipe.SeverityError {
				m.applyFilter("")
			} else {
				m.applyFilter(recipe.SeverityError)
			}
		case "w":
			if m.filter == recipe.SeverityWarning {
				m.applyFilter("")
			} else {
				m.applyFilter(recipe.SeverityWarning)
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m lintModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Lint findings: " + m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  e errors  w warnings  q quit"))
	b.WriteString("\n\n")

	if len(m.shown) == 0 {
		b.WriteString(listDimStyle.Render("no findings for this filter"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.offset + m.height
	if end > len(m.shown) {
		end = len(m.shown)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		issue := m.shown[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		sev := string(issue.Severity)
		if issue.Severity == recipe.SeverityError {
			sev = StyleError.Render(sev)
		} else {
			sev = StyleWarning.Render(sev)
		}

		rows = append(rows, []string{cursor, sev, issue.Field, issue.Message})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Severity", "Field", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// runLintTUI opens the interactive finding browser.
func runLintTUI(r *recipe.Recipe, issues []recipe.Issue) error {
	p := tea.NewProgram(newLintModel(r, issues))
	_, err := p.Run()
	return err
}
