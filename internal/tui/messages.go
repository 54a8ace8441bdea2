package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/coves/internal/cove"
)

// envCreatedMsg is sent when a background create finishes.
type envCreatedMsg struct {
	name string
	err  error
}

// envRemovedMsg is sent when a background remove finishes.
type envRemovedMsg struct {
	name string
	err  error
}

// servicesRanMsg is sent after /run restarts background services.
type servicesRanMsg struct {
	name  string
	count int
	err   error
}

// statusMsg carries a fresh snapshot of every environment plus the
// captured pane text per env.
type statusMsg struct {
	overviews []cove.Overview
	previews  map[string]string
}

// statusTickMsg triggers a status refresh poll.
type statusTickMsg time.Time

// confirmRmExpiredMsg cancels a pending double-press removal.
type confirmRmExpiredMsg struct{}

// tickCmd schedules the next status poll.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
