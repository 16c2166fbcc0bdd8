package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xlemi/humnote/internal/note"
	"github.com/0xlemi/humnote/internal/pipeline"
	"github.com/0xlemi/humnote/internal/pitch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// How many note chips to show per file before eliding the rest
const maxNoteChips = 24

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	fileStyle = lipgloss.NewStyle().Bold(true)

	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	case "B":
		return "C"
	default:
		return "C"
	}
}

func chipStyle(letter string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#111111")).
		Background(lipgloss.Color(noteColors[letter]))
}

// renderNoteChip draws a note name on its letter's color. Sharps are split
// between the color of their letter and the next one.
func renderNoteChip(semitone int) string {
	name := pitch.NoteName(semitone)
	letter := name[:1]

	if strings.HasPrefix(name[1:], "#") {
		left := chipStyle(letter).PaddingLeft(1).Render(letter)
		right := chipStyle(getNextNote(letter)).PaddingRight(1).Render(name[1:])
		return left + right
	}
	return chipStyle(letter).Padding(0, 1).Render(name)
}

// EventMsg carries a pipeline progress event into the UI
type EventMsg pipeline.Event

// DoneMsg is sent once every conversion has finished
type DoneMsg struct {
	Err error
}

// TickMsg represents a timer tick
type TickMsg time.Time

type fileState struct {
	stage pipeline.Stage
	notes []note.Note
	err   error
}

// Model represents the UI state
type Model struct {
	order   []string
	files   map[string]fileState
	started time.Time
	now     time.Time
	done    bool
	err     error
	width   int
}

// NewModel creates a UI model tracking the given inputs in order
func NewModel(inputs []string) Model {
	files := make(map[string]fileState, len(inputs))
	for _, in := range inputs {
		files[in] = fileState{}
	}

	now := time.Now()
	return Model{
		order:   append([]string(nil), inputs...),
		files:   files,
		started: now,
		now:     now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case TickMsg:
		if m.done {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, tick()

	case EventMsg:
		if _, ok := m.files[msg.Input]; !ok {
			m.order = append(m.order, msg.Input)
		}
		state := m.files[msg.Input]
		state.stage = msg.Stage
		if msg.Stage == pipeline.StageDone {
			state.notes = msg.Notes
		}
		if msg.Stage == pipeline.StageFailed {
			state.err = msg.Err
		}
		m.files[msg.Input] = state

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.now = time.Now()
	}

	return m, nil
}

// Finished reports how many files are done and how many failed
func (m Model) Finished() (done, failed int) {
	for _, state := range m.files {
		switch state.stage {
		case pipeline.StageDone:
			done++
		case pipeline.StageFailed:
			failed++
		}
	}
	return done, failed
}

// View renders the UI
func (m Model) View() string {
	s := titleStyle.Render("HumNote - Humming to MIDI")
	s += "\n"

	for _, in := range m.order {
		state := m.files[in]
		s += fileStyle.Render(in) + "  "

		switch state.stage {
		case "":
			s += infoStyle.Render("waiting")
		case pipeline.StageDone:
			s += doneStyle.Render(fmt.Sprintf("%d notes", len(state.notes)))
			s += "\n" + renderNotes(state.notes)
		case pipeline.StageFailed:
			s += errorStyle.Render(state.err.Error())
		default:
			s += infoStyle.Render(string(state.stage) + "...")
		}
		s += "\n"
	}

	done, failed := m.Finished()
	status := fmt.Sprintf("%d/%d converted, %d failed | %s",
		done, len(m.order), failed, m.now.Sub(m.started).Round(time.Millisecond*100))
	s += "\n" + infoStyle.Render(status)

	if m.done {
		s += "\n\n" + infoStyle.Render("Finished. Press q to quit")
	} else {
		s += "\n\n" + infoStyle.Render("Press q to quit")
	}

	return s
}

func renderNotes(notes []note.Note) string {
	if len(notes) == 0 {
		return infoStyle.Render("  (no notes)")
	}

	chips := make([]string, 0, maxNoteChips)
	for i, n := range notes {
		if i == maxNoteChips {
			chips = append(chips, infoStyle.Render(fmt.Sprintf("+%d", len(notes)-maxNoteChips)))
			break
		}
		chips = append(chips, renderNoteChip(n.Pitch))
	}
	return "  " + strings.Join(chips, " ")
}
