// Package traceui is a small bubbletea/bubbles/lipgloss program that
// renders a live feed of observer.Event values (C14), grounded on
// app/relurpish/tui's model.go/update.go/view.go split. It is a pure
// consumer of observer.ChannelObserver: closing or killing it never
// affects the search it is watching.
package traceui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/mapop/observer"
)

const maxLines = 500

// Model is the bubbletea model for the trace viewer.
type Model struct {
	feed   viewport.Model
	events <-chan observer.Event
	lines  []string

	bestHDTG, bestHLand int
	batonAgent          string
	terminal            string

	width, height int
	ready         bool
}

// New builds a Model that reads from a ChannelObserver's event channel.
func New(ch *observer.ChannelObserver) Model {
	return Model{
		feed:       viewport.New(0, 0),
		events:     ch.Events(),
		bestHDTG:   -1,
		bestHLand:  -1,
		batonAgent: "-",
	}
}

// Run starts the bubbletea program and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, ch *observer.ChannelObserver) error {
	program := tea.NewProgram(New(ch), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// eventMsg wraps one observer.Event as a tea.Msg.
type eventMsg observer.Event

func waitForEvent(events <-chan observer.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 2
		m.feed = viewport.New(m.width, m.height-headerHeight)
		m.feed.SetContent(strings.Join(m.lines, "\n"))
		m.feed.GotoBottom()
		m.ready = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	case eventMsg:
		m = m.appendEvent(observer.Event(msg))
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m Model) appendEvent(e observer.Event) Model {
	m.lines = append(m.lines, formatEvent(e))
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	switch e.Type {
	case observer.EventBasePlanSel:
		if m.bestHDTG < 0 || e.HDTG < m.bestHDTG {
			m.bestHDTG = e.HDTG
		}
		if m.bestHLand < 0 || e.HLand < m.bestHLand {
			m.bestHLand = e.HLand
		}
	case observer.EventLandmarkPromote:
		m.batonAgent = e.Agent
	case observer.EventTerminated:
		m.terminal = e.Result.String()
	}
	if m.ready {
		m.feed.SetContent(strings.Join(m.lines, "\n"))
		m.feed.GotoBottom()
	}
	return m
}

func formatEvent(e observer.Event) string {
	ts := e.Timestamp.Format("15:04:05.000")
	switch e.Type {
	case observer.EventIterationStart:
		return fmt.Sprintf("%s iter=%d", ts, e.Iteration)
	case observer.EventBasePlanSel:
		return fmt.Sprintf("%s base=%s h_DTG=%d h_LAND=%d", ts, e.PlanName, e.HDTG, e.HLand)
	case observer.EventRefinement:
		return fmt.Sprintf("%s refine %s <- %s (%s)", ts, e.PlanName, e.Parent, e.Kind)
	case observer.EventThreatResolved:
		return fmt.Sprintf("%s threat resolved on %s step=%d kind=%s", ts, e.PlanName, e.StepIndex, e.Kind)
	case observer.EventLandmarkPromote:
		return fmt.Sprintf("%s landmark %d promoted by %s", ts, e.LandmarkID, e.Agent)
	case observer.EventHeuristicAdjust:
		return fmt.Sprintf("%s heuristic adjust %s new_landmarks=%d", ts, e.PlanName, e.Iteration)
	case observer.EventSolutionFound:
		return fmt.Sprintf("%s solution found: %s", ts, e.PlanName)
	case observer.EventTerminated:
		return fmt.Sprintf("%s search terminated: %s", ts, e.Result)
	default:
		return fmt.Sprintf("%s %s", ts, e.Type)
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

func (m Model) View() string {
	if !m.ready {
		return "Initializing...\n"
	}
	header := headerStyle.Render(fmt.Sprintf(
		"mapop trace  best h_DTG=%d h_LAND=%d  baton=%s  %s",
		m.bestHDTG, m.bestHLand, m.batonAgent, m.terminal,
	))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.feed.View())
}
