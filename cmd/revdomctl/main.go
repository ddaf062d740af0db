// Command revdomctl is a small operator TUI that polls a running revdomd
// instance's /status endpoint and renders live connection counts. It uses
// the same libraries as the teacher's scaffolding CLI (cmd/lvt), reshaped
// into an operational dashboard: bubbletea for the event loop, bubbles for
// the table widget, lipgloss for styling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusReport struct {
	Connections int    `json:"connections"`
	Backend     string `json:"backend"`
}

type tickMsg time.Time

type fetchedMsg struct {
	report statusReport
	err    error
}

type model struct {
	target string
	table  table.Model
	err    error
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

func initialModel(target string) model {
	columns := []table.Column{
		{Title: "Metric", Width: 20},
		{Title: "Value", Width: 20},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(false), table.WithHeight(5))
	return model{target: target, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchStatus(m.target), tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchStatus(target string) tea.Cmd {
	return func() tea.Msg {
		resp, err := http.Get(target)
		if err != nil {
			return fetchedMsg{err: err}
		}
		defer resp.Body.Close()

		var report statusReport
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return fetchedMsg{err: err}
		}
		return fetchedMsg{report: report}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(fetchStatus(m.target), tick())
	case fetchedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows([]table.Row{
				{"connections", fmt.Sprint(msg.report.Connections)},
				{"session backend", msg.report.Backend},
			})
		}
	}
	return m, nil
}

func (m model) View() string {
	header := headerStyle.Render(fmt.Sprintf("revdomctl — %s", m.target))
	if m.err != nil {
		return header + "\n\n" + errStyle.Render(m.err.Error()) + "\n\n(q to quit)"
	}
	return header + "\n\n" + m.table.View() + "\n\n(q to quit)"
}

func main() {
	addr := flag.String("addr", "http://localhost:8080/status", "revdomd status endpoint")
	flag.Parse()

	p := tea.NewProgram(initialModel(*addr))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "revdomctl:", err)
		os.Exit(1)
	}
}
