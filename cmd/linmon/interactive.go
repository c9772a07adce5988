package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	consumedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	abortedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const pageSize = 20

type browserModel struct {
	result *replayResult
	cursor int
	offset int
}

func newBrowserModel(result *replayResult) *browserModel {
	return &browserModel{result: result}
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		if m.cursor < m.offset {
			m.offset = m.cursor
		}

	case "down", "j":
		if m.cursor < len(m.result.Events)-1 {
			m.cursor++
		}
		if m.cursor >= m.offset+pageSize {
			m.offset = m.cursor - pageSize + 1
		}

	case "g", "home":
		m.cursor, m.offset = 0, 0

	case "G", "end":
		m.cursor = len(m.result.Events) - 1
		if m.cursor >= pageSize {
			m.offset = m.cursor - pageSize + 1
		}
	}

	return m, nil
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" linmon - %s ", m.result.TraceFile)))
	b.WriteString("\n\n")

	end := m.offset + pageSize
	if end > len(m.result.Events) {
		end = len(m.result.Events)
	}

	for i := m.offset; i < end; i++ {
		e := m.result.Events[i]
		name := e.Name
		if name == "" {
			name = "?"
		}
		line := fmt.Sprintf("%-9s %-16s handle %-4d %s", e.Kind, name, e.ID, e.Site)

		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case e.Kind == "created":
			line = createdStyle.Render(line)
		case e.Kind == "consumed":
			line = consumedStyle.Render(line)
		case e.Kind == "aborted":
			line = abortedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if len(m.result.Events) == 0 {
		b.WriteString(helpStyle.Render("(no events)"))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	summary := fmt.Sprintf("created %d  consumed %d  leaked %d",
		m.result.Created, m.result.Consumed, len(m.result.Leaks))
	if len(m.result.Leaks) > 0 {
		b.WriteString(abortedStyle.Render(summary))
	} else {
		b.WriteString(summaryStyle.Render(summary))
	}
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render("up/down: scroll - g/G: first/last - q: quit"))
	b.WriteByte('\n')

	return b.String()
}

func runInteractive(result *replayResult) error {
	p := tea.NewProgram(newBrowserModel(result), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
