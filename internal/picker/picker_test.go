package picker

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPicker(t *testing.T) {
	path, err := StaticPicker{Path: "/data/batch.xlsx"}.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/data/batch.xlsx", path)
}

func TestStaticPickerEmpty(t *testing.T) {
	_, err := StaticPicker{Path: "  "}.Pick(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestStaticPickerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StaticPicker{Path: "x.csv"}.Pick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		m := newModel(t.TempDir(), []string{".csv"})
		next, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, next.(model).selected)
	}
}

func TestModelView(t *testing.T) {
	m := newModel("/tmp", []string{".xlsx"})
	m.warning = "notes.txt is not a supported spreadsheet (.xlsx)"
	view := m.View()
	assert.Contains(t, view, "Select the spreadsheet to load")
	assert.Contains(t, view, "/tmp")
	assert.Contains(t, view, "notes.txt")
}
