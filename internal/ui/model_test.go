package ui

import (
	"errors"
	"testing"

	"github.com/0xlemi/humnote/internal/note"
	"github.com/0xlemi/humnote/internal/pipeline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func TestModelTracksEvents(t *testing.T) {
	m := NewModel([]string{"a.wav", "b.wav"})

	m = update(t, m, EventMsg{Input: "a.wav", Stage: pipeline.StageTrack})
	assert.Contains(t, m.View(), "track...")

	notes := []note.Note{{Pitch: 69, Start: 0, End: 0.5, Velocity: 90}, {Pitch: 61, Start: 0.5, End: 1, Velocity: 90}}
	m = update(t, m, EventMsg{Input: "a.wav", Stage: pipeline.StageDone, Notes: notes})
	m = update(t, m, EventMsg{Input: "b.wav", Stage: pipeline.StageFailed, Err: errors.New("boom")})

	done, failed := m.Finished()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, failed)

	view := m.View()
	assert.Contains(t, view, "2 notes")
	assert.Contains(t, view, "A4")
	assert.Contains(t, view, "#4")
	assert.Contains(t, view, "boom")
}

func TestModelAddsUnknownInputs(t *testing.T) {
	m := NewModel(nil)
	m = update(t, m, EventMsg{Input: "microphone", Stage: pipeline.StageDecode})
	assert.Equal(t, []string{"microphone"}, m.order)
}

func TestModelDoneAndQuit(t *testing.T) {
	m := NewModel([]string{"a.wav"})
	m = update(t, m, DoneMsg{})
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "Finished")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderNotesElides(t *testing.T) {
	notes := make([]note.Note, maxNoteChips+5)
	for i := range notes {
		notes[i] = note.Note{Pitch: 60}
	}
	assert.Contains(t, renderNotes(notes), "+5")
	assert.Contains(t, renderNotes(nil), "no notes")
}
