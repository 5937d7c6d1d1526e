// =============================================================================
// entrypilot - File Picker
// =============================================================================
//
// The native host asks the operator for the spreadsheet to load. Two
// pickers exist:
//   - TUIPicker:    an interactive file browser drawn on the controlling
//                   terminal (the host's stdin/stdout carry wire frames)
//   - StaticPicker: a fixed path from configuration, for unattended runs
//
// =============================================================================

package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator dismisses the picker.
var ErrCancelled = errors.New("file selection cancelled")

// Picker chooses the spreadsheet to load.
type Picker interface {
	Pick(ctx context.Context) (string, error)
}

// =============================================================================
// STATIC PICKER
// =============================================================================

// StaticPicker always returns the same path.
type StaticPicker struct {
	Path string
}

// Pick returns the configured path, or ErrCancelled if none is set.
func (p StaticPicker) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Path) == "" {
		return "", ErrCancelled
	}
	return p.Path, nil
}

// =============================================================================
// TERMINAL PICKER
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// TUIPicker browses the filesystem on a terminal.
type TUIPicker struct {
	// Dir is the starting directory. Empty means the working directory.
	Dir string
	// AllowedTypes restricts selectable files by extension.
	AllowedTypes []string

	// Input and Output default to the controlling terminal.
	Input  io.Reader
	Output io.Writer
}

// NewTUIPicker creates a picker limited to the given extensions.
func NewTUIPicker(dir string, allowed []string) *TUIPicker {
	return &TUIPicker{Dir: dir, AllowedTypes: allowed}
}

// Pick runs the file browser until a file is chosen or the operator quits.
func (p *TUIPicker) Pick(ctx context.Context) (string, error) {
	in, out := p.Input, p.Output
	if in == nil || out == nil {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return "", fmt.Errorf("no terminal available for file selection: %w", err)
		}
		defer tty.Close()
		if in == nil {
			in = tty
		}
		if out == nil {
			out = tty
		}
	}

	dir := p.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	prog := tea.NewProgram(newModel(dir, p.AllowedTypes),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}

	m, ok := final.(model)
	if !ok || m.selected == "" {
		return "", ErrCancelled
	}
	return m.selected, nil
}

// -----------------------------------------------------------------------------
// model
// -----------------------------------------------------------------------------

type model struct {
	fp       filepicker.Model
	selected string
	warning  string
}

func newModel(dir string, allowed []string) model {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.AllowedTypes = allowed
	fp.AutoHeight = false
	fp.Height = 15
	return model{fp: fp}
}

func (m model) Init() tea.Cmd {
	return m.fp.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)

	if ok, path := m.fp.DidSelectFile(msg); ok {
		m.selected = path
		return m, tea.Quit
	}
	if ok, path := m.fp.DidSelectDisabledFile(msg); ok {
		m.warning = fmt.Sprintf("%s is not a supported spreadsheet (%s)", filepath.Base(path), strings.Join(m.fp.AllowedTypes, ", "))
		return m, cmd
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select the spreadsheet to load"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.fp.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.fp.View())
	b.WriteString("\n")
	if m.warning != "" {
		b.WriteString(errorStyle.Render(m.warning))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("enter: open/select  backspace: up  q: cancel"))
	b.WriteString("\n")
	return b.String()
}
