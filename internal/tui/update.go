package tui

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/cove"
	"github.com/zpdzap/coves/internal/progress"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// refreshCmd probes every environment and captures the agent pane of
// the ready ones. Runs off the UI goroutine so a slow runtime only
// delays the refresh, never input handling.
func (m model) refreshCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		overviews, err := mgr.InspectAll(ctx)
		if err != nil {
			return statusMsg{}
		}

		previews := make(map[string]string)
		for _, ov := range overviews {
			if !ov.Ready {
				continue
			}
			res, err := mgr.Runtime().Exec(ctx, ov.Env,
				compose.ExecOpts{Service: mgr.Config.Compose.Service},
				"tmux", "capture-pane", "-t", mgr.Config.Agent.Session, "-p", "-S", "-30")
			if err == nil && res.ExitCode == 0 {
				previews[ov.Env.Name] = res.Stdout
			}
		}
		return statusMsg{overviews: overviews, previews: previews}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6 // account for "  > /" prefix
		return m, nil

	case statusTickMsg:
		// Surface the background create's latest phase.
		if m.progressSink != nil {
			if phase := m.progressSink.Phase(); phase != "" {
				m.message = fmt.Sprintf("[%s] %s", m.progressName, phase)
				m.isError = false
			}
		}
		return m, m.refreshCmd()

	case statusMsg:
		if msg.overviews != nil {
			m.overviews = msg.overviews
			m.previews = msg.previews
			if m.cursor >= len(m.overviews) && m.cursor > 0 {
				m.cursor = len(m.overviews) - 1
			}
		}
		return m, tickCmd()

	case envCreatedMsg:
		m.progressName = ""
		m.progressSink = nil
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Created environment: %s", msg.name)
			m.isError = false
		}
		return m, tea.Batch(m.refreshCmd(), tea.ClearScreen)

	case envRemovedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("Removed environment: %s", msg.name)
			m.isError = false
			delete(m.previews, msg.name)
		}
		return m, tea.Batch(m.refreshCmd(), tea.ClearScreen)

	case servicesRanMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("[%s] %d services running", msg.name, msg.count)
			m.isError = false
		}
		return m, nil

	case confirmRmExpiredMsg:
		m.confirmRm = false
		m.confirmRmName = ""
		return m, nil

	case tea.KeyMsg:
		if m.commanding {
			return m.handleCommandMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.commanding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNormalMode handles keys while navigating the environment list.
func (m model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// If confirming a removal, second x confirms, anything else cancels.
	if m.confirmRm {
		m.confirmRm = false
		if msg.String() == "x" {
			name := m.confirmRmName
			m.confirmRmName = ""
			m.message = fmt.Sprintf("Removing environment %s...", name)
			m.isError = false
			return m, removeCmd(m.manager, name, false)
		}
		m.confirmRmName = ""
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("")
		return m, textinput.Blink

	case "n":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("new ")
		m.input.SetCursor(4)
		return m, textinput.Blink

	case "x":
		if m.cursor < len(m.overviews) {
			m.confirmRm = true
			m.confirmRmName = m.overviews[m.cursor].Env.Name
			return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
				return confirmRmExpiredMsg{}
			})
		}
		return m, nil

	case "r":
		if m.cursor < len(m.overviews) {
			return m, runServicesCmd(m.manager, m.overviews[m.cursor].Env.Name)
		}
		return m, nil

	case "d":
		if m.cursor < len(m.overviews) {
			env := m.overviews[m.cursor].Env
			out, err := m.manager.Diff(context.Background(), env)
			if err != nil {
				m.message = fmt.Sprintf("diff error: %v", err)
				m.isError = true
			} else if strings.TrimSpace(out) == "" {
				m.message = fmt.Sprintf("[%s] No changes yet", env.Name)
				m.isError = false
			} else {
				m.message = fmt.Sprintf("[%s diff]\n%s", env.Name, out)
				m.isError = false
			}
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if len(m.overviews) > 0 {
			m.cursor = len(m.overviews) - 1
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.overviews)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if m.cursor < len(m.overviews) {
			m.connectTo = m.overviews[m.cursor].Env.Name
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

// handleCommandMode handles keys while the command bar is active.
func (m model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.commanding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		m.commanding = false
		m.input.Blur()
		return m.processInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) processInput() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}
	if input[0] != '/' {
		input = "/" + input
	}
	cmd := ParseCommand(input)
	if cmd == nil {
		return m, nil
	}

	switch cmd.Name {
	case "new":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /new <name> [task description]"
			m.isError = true
			return m, nil
		}
		name := cmd.Args[0]
		if !validName.MatchString(name) {
			m.message = "Name must be alphanumeric (hyphens ok, e.g. fix-login)"
			m.isError = true
			return m, nil
		}
		task := strings.Join(cmd.Args[1:], " ")

		sink := &phaseSink{}
		m.progressName = name
		m.progressSink = sink
		m.message = fmt.Sprintf("[%s] Creating...", name)
		m.isError = false

		mgr := m.manager
		return m, func() tea.Msg {
			rep := progress.New(sink, true)
			_, err := mgr.Create(context.Background(), name, "", task, rep)
			return envCreatedMsg{name: name, err: err}
		}

	case "rm":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /rm <name> [--force]"
			m.isError = true
			return m, nil
		}
		name := cmd.Args[0]
		force := len(cmd.Args) > 1 && cmd.Args[1] == "--force"
		m.message = fmt.Sprintf("Removing environment %s...", name)
		m.isError = false
		return m, removeCmd(m.manager, name, force)

	case "connect":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /connect <name>"
			m.isError = true
			return m, nil
		}
		m.connectTo = cmd.Args[0]
		return m, tea.Quit

	case "run":
		if len(cmd.Args) < 1 {
			m.message = "Usage: /run <name>"
			m.isError = true
			return m, nil
		}
		return m, runServicesCmd(m.manager, cmd.Args[0])

	case "quit":
		m.quitting = true
		return m, tea.Quit

	default:
		m.message = fmt.Sprintf("Unknown command: /%s", cmd.Name)
		m.isError = true
		return m, nil
	}
}

func removeCmd(mgr *cove.Manager, name string, force bool) tea.Cmd {
	return func() tea.Msg {
		rep := progress.New(&bytes.Buffer{}, false)
		err := mgr.Remove(context.Background(), name, force, rep)
		return envRemovedMsg{name: name, err: err}
	}
}

func runServicesCmd(mgr *cove.Manager, name string) tea.Cmd {
	return func() tea.Msg {
		env, err := mgr.Store.Get(name)
		if err != nil {
			return servicesRanMsg{name: name, err: err}
		}
		n, err := mgr.RunServices(context.Background(), env)
		return servicesRanMsg{name: name, count: n, err: err}
	}
}
