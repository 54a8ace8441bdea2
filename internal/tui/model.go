package tui

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/zpdzap/coves/internal/cove"
	"github.com/zpdzap/coves/internal/progress"
)

// phaseSink turns progress events from a background create into a
// single latest-phase string the dashboard can poll.
type phaseSink struct {
	mu    sync.Mutex
	phase string
}

func (s *phaseSink) Write(p []byte) (int, error) {
	if ev := progress.ParseLine(string(p)); ev != nil {
		s.mu.Lock()
		s.phase = ev.Message
		s.mu.Unlock()
	}
	return len(p), nil
}

func (s *phaseSink) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// model is the Bubble Tea model for the cove dashboard.
type model struct {
	manager    *cove.Manager
	input      textinput.Model
	cursor     int
	message    string
	isError    bool
	commanding bool // command bar active (/ pressed)
	quitting   bool
	connectTo  string // env name to attach after tea quits
	width      int
	height     int

	overviews []cove.Overview
	previews  map[string]string // cached pane text per env name

	progressName string     // env being created in the background
	progressSink *phaseSink // latest create phase, written by reporter

	showHelp bool

	// Double-press removal confirmation
	confirmRm     bool
	confirmRmName string
}

func newModel(mgr *cove.Manager) model {
	ti := textinput.New()
	ti.Placeholder = "new, rm, connect, run <name> | quit"
	ti.CharLimit = 256
	ti.Width = 80
	ti.Blur()

	// Initial terminal size so the first render isn't at width=0.
	w, h, _ := term.GetSize(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	return model{
		manager:  mgr,
		input:    ti,
		width:    w,
		height:   h,
		previews: make(map[string]string),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}
