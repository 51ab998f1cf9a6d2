package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vidlore/internal/pipeline"
)

const (
	keyQuit  = "q"
	keyCtrlC = "ctrl+c"

	maxEvents = 6
	barWidth  = 30
)

// stages shown in the checklist, in order.
var stages = []pipeline.Stage{
	pipeline.StageAudioExtraction,
	pipeline.StageTranscription,
	pipeline.StageAnnotation,
	pipeline.StageRender,
}

// PipelineMsg wraps a pipeline message for the bubbletea loop.
type PipelineMsg struct {
	Message pipeline.Message
}

// FinishedMsg reports the end of the pipeline work.
type FinishedMsg struct {
	Output string
	Err    error
}

type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateDone
	stateFailed
)

type stageRow struct {
	state    stageState
	duration time.Duration
}

// Model is the progress view.
type Model struct {
	title    string
	messages <-chan pipeline.Message
	cancel   context.CancelFunc

	rows      map[pipeline.Stage]*stageRow
	current   pipeline.Stage
	completed int
	total     int
	events    []string
	overlays  int

	finished bool
	output   string
	err      error
	width    int
}

// New builds a model reading from messages. cancel is called when the user
// quits before the work finishes.
func New(title string, messages <-chan pipeline.Message, cancel context.CancelFunc) Model {
	rows := make(map[pipeline.Stage]*stageRow, len(stages))
	for _, st := range stages {
		rows[st] = &stageRow{}
	}
	return Model{
		title:    title,
		messages: messages,
		cancel:   cancel,
		rows:     rows,
	}
}

// Init starts listening for pipeline messages.
func (m Model) Init() tea.Cmd {
	return waitForMessage(m.messages)
}

func waitForMessage(ch <-chan pipeline.Message) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return PipelineMsg{Message: msg}
	}
}

// Update applies a message to the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case keyQuit, keyCtrlC:
			if !m.finished && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case PipelineMsg:
		m.apply(msg.Message)
		return m, waitForMessage(m.messages)
	case FinishedMsg:
		m.finished = true
		m.output = msg.Output
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(msg pipeline.Message) {
	switch msg := msg.(type) {
	case pipeline.StageStarted:
		m.current = msg.Stage
		m.completed, m.total = 0, 0
		if row, ok := m.rows[msg.Stage]; ok {
			row.state = stateRunning
		}
	case pipeline.StageProgress:
		if msg.Stage == m.current && msg.Completed >= m.completed {
			m.completed, m.total = msg.Completed, msg.Total
		}
	case pipeline.StageCompleted:
		if row, ok := m.rows[msg.Stage]; ok {
			row.state = stateDone
			row.duration = msg.Duration
		}
		if msg.Output != "" {
			m.output = msg.Output
		}
	case pipeline.StageFailed:
		if row, ok := m.rows[msg.Stage]; ok {
			row.state = stateFailed
		}
		m.err = msg.Err
	case pipeline.CandidatesReady:
		m.addEvent(fmt.Sprintf("#%d %s: %d candidates", msg.Segment, msg.Entity.Text, len(msg.Candidates)))
	case pipeline.SegmentCaptured:
		m.overlays++
		m.addEvent(fmt.Sprintf("#%d captured", msg.Segment))
	case pipeline.CaptureFailed:
		m.addEvent(fmt.Sprintf("#%d capture failed: %v", msg.Segment, msg.Err))
	case pipeline.SelectionOverridden:
		m.addEvent(fmt.Sprintf("#%d %s → %s", msg.Event.Segment, msg.Event.OldTitle, msg.Event.NewTitle))
	}
}

func (m *Model) addEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// Result returns the output and error recorded by the model.
func (m Model) Result() (string, error) {
	return m.output, m.err
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, st := range stages {
		b.WriteString(m.renderStage(st))
		b.WriteByte('\n')
	}
	if m.total > 0 {
		b.WriteString("\n")
		b.WriteString(renderBar(m.completed, m.total))
		b.WriteByte('\n')
	}
	if len(m.events) > 0 {
		b.WriteString("\n")
		for _, ev := range m.events {
			b.WriteString(eventStyle.Render("  " + truncate(ev, m.width-2)))
			b.WriteByte('\n')
		}
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteByte('\n')
	}
	if m.finished && m.err == nil && m.output != "" {
		b.WriteString("\n")
		b.WriteString(stageDoneStyle.Render(fmt.Sprintf("Wrote %s (%d overlays)", filepath.Base(m.output), m.overlays)))
		b.WriteByte('\n')
	}
	if !m.finished {
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("q to cancel"))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) renderStage(st pipeline.Stage) string {
	row := m.rows[st]
	switch row.state {
	case stateRunning:
		return stageActiveStyle.Render("▸ " + st.Label())
	case stateDone:
		return stageDoneStyle.Render("✓ "+st.Label()) + eventStyle.Render(" "+row.duration.Round(100*time.Millisecond).String())
	case stateFailed:
		return errorStyle.Render("✗ " + st.Label())
	default:
		return stagePendingStyle.Render("  " + st.Label())
	}
}

func renderBar(completed, total int) string {
	filled := 0
	if total > 0 {
		filled = completed * barWidth / total
	}
	filled = min(filled, barWidth)
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %d/%d", completed, total)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
