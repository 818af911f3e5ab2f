package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hashsearch/internal/async"
	"hashsearch/internal/logging"
	"hashsearch/internal/search"
	"hashsearch/internal/server"
)

var errTaskPanicked = errors.New("search task panicked")

const (
	tuiRefresh  = 100 * time.Millisecond
	minInterval = 10 * time.Millisecond
	maxInterval = time.Minute
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	foundStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tableBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type tickMsg time.Time

type doneMsg struct {
	res search.Result
	err error
}

// tuiModel renders the per-worker table and maps keys onto task controls.
type tuiModel struct {
	ctrl   server.Controller
	board  *board
	info   server.TaskInfo
	table  table.Model
	notice string
	done   bool
	result search.Result
	err    error
}

func newTUIModel(ctrl server.Controller, b *board, info server.TaskInfo) tuiModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Worker", Width: 8},
			{Title: "State", Width: 9},
			{Title: "Last candidate", Width: 28},
			{Title: "Rate", Width: 12},
			{Title: "Since report", Width: 12},
			{Title: "Cumulative", Width: 16},
		}),
		table.WithHeight(min(info.Workers, 16)+1),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	m := tuiModel{ctrl: ctrl, board: b, info: info, table: t}
	m.refresh()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(tuiRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd {
	return tick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg), nil
	case tickMsg:
		m.refresh()
		if m.done {
			return m, nil
		}
		return m, tick()
	case doneMsg:
		m.done = true
		m.result, m.err = msg.res, msg.err
		m.refresh()
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) tuiModel {
	if m.done {
		return m
	}
	switch msg.String() {
	case "p":
		m.ctrl.PauseAll()
		m.notice = "paused"
	case "r":
		m.ctrl.ResumeAll()
		m.notice = "resumed"
	case "s", "q", "ctrl+c", "esc":
		m.ctrl.StopAll()
		m.notice = "stopping"
	case "+", "=":
		m.setInterval(nextInterval(m.ctrl.ReportingInterval(), true))
	case "-", "_":
		m.setInterval(nextInterval(m.ctrl.ReportingInterval(), false))
	}
	return m
}

func (m *tuiModel) setInterval(d time.Duration) {
	if err := m.ctrl.SetReportingInterval(d); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = "interval " + d.String()
}

// nextInterval doubles or halves the reporting interval within
// [minInterval, maxInterval]; halving below the minimum reports every
// candidate.
func nextInterval(d time.Duration, up bool) time.Duration {
	if up {
		if d < minInterval {
			return 100 * time.Millisecond
		}
		return min(d*2, maxInterval)
	}
	if d <= minInterval {
		return 0
	}
	return max(d/2, minInterval)
}

func (m *tuiModel) refresh() {
	snaps := m.ctrl.Snapshot()
	rows := make([]table.Row, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, table.Row{
			strconv.Itoa(s.ID),
			s.State,
			truncate(s.Candidate, 28),
			formatRate(m.board.rate(s.ID)),
			strconv.FormatUint(s.Recent, 10),
			s.Cumulative.String(),
		})
	}
	m.table.SetRows(rows)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("hashsearch"))
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %s\n",
		labelStyle.Render("algorithm"), m.info.Algorithm,
		labelStyle.Render("mode"), m.info.Mode,
		labelStyle.Render("space"), m.info.SpaceSize)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("pattern"), m.info.Pattern)
	b.WriteString(tableBorder.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if !m.done {
		b.WriteString(helpStyle.Render(fmt.Sprintf("p pause • r resume • s stop • +/- interval (%s)", m.ctrl.ReportingInterval())))
		b.WriteString("\n")
	}
	return b.String()
}

func (m tuiModel) statusLine() string {
	if candidate, worker, ok := m.board.match(); ok {
		return foundStyle.Render(fmt.Sprintf("plaintext found: %s (worker %d)", candidate, worker))
	}
	switch {
	case m.done && m.err != nil:
		return m.err.Error()
	case m.done && m.result.Exhausted:
		return "search space exhausted"
	case m.done:
		return "stopped"
	case m.ctrl.Paused():
		return pausedStyle.Render("paused")
	case m.ctrl.Stopped():
		return "stopping"
	}
	if m.notice != "" {
		return "running • " + m.notice
	}
	return "running"
}

// startTask runs the task on a panic-guarded goroutine. Exactly one doneMsg
// is delivered on the returned channel and to notify, even if run panics.
func startTask(logger logging.Logger, run func() (search.Result, error), notify func(tea.Msg)) <-chan doneMsg {
	done := make(chan doneMsg, 1)
	async.Go(logger, "search-task", func() {
		msg := doneMsg{err: errTaskPanicked}
		defer func() {
			done <- msg
			notify(msg)
		}()
		res, err := run()
		msg = doneMsg{res: res, err: err}
	})
	return done
}

// runTUI drives the task behind the interactive table. The program quits
// once the task has finished; stop keys only request a stop.
func runTUI(logger logging.Logger, task *search.Task, b *board, info server.TaskInfo, run func() (search.Result, error)) (search.Result, error) {
	p := tea.NewProgram(newTUIModel(task, b, info), tea.WithAltScreen())
	done := startTask(logger, run, p.Send)

	if _, err := p.Run(); err != nil {
		task.StopAll()
		msg := <-done
		if msg.err != nil {
			return msg.res, msg.err
		}
		return msg.res, fmt.Errorf("terminal UI: %w", err)
	}
	msg := <-done
	return msg.res, msg.err
}
