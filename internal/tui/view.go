package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zpdzap/coves/internal/agent"
	"github.com/zpdzap/coves/internal/cove"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	title := "coves"
	project := branchStyle.Render(m.manager.Config.Project)
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(project) - 4
	if gap < 1 {
		gap = 1
	}
	header := headerStyle.Width(m.width).Render(title + strings.Repeat(" ", gap) + project)

	if len(m.overviews) == 0 {
		return m.renderEmptyState(header)
	}
	return m.renderSplitView(header)
}

func (m model) renderEmptyState(header string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(emptyStyle.Render("No environments. Press n or / to create one."))
	b.WriteString("\n\n")

	if m.commanding {
		b.WriteString(hotkeysStyle.Render("[enter] execute  [esc] cancel"))
	} else {
		b.WriteString(hotkeysStyle.Render("[n]ew  [?] help  [q] quit"))
	}
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	m.renderStatusAndInput(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

func (m model) renderSplitView(header string) string {
	var b strings.Builder

	b.WriteString(header)
	b.WriteString("\n")

	for i, ov := range m.overviews {
		b.WriteString(m.renderEnv(i, ov))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	// Preview pane fills the vertical space between list and footer.
	footerLines := 4 // hotkeys + divider + status + possible input
	if m.commanding {
		footerLines++
	}
	previewHeight := max(3, m.height-1-len(m.overviews)-1-footerLines)

	b.WriteString(m.renderPreview(previewHeight))

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	if m.commanding {
		b.WriteString(hotkeysStyle.Render("[enter] execute  [esc] cancel"))
	} else if m.confirmRm {
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Remove %s? Press x again to confirm, any other key to cancel", m.confirmRmName)))
	} else {
		b.WriteString(hotkeysStyle.Render("[↑↓] select  [enter] connect  [n]ew  [x] remove  [r]un  [d]iff  [?] help"))
	}
	b.WriteString("\n")

	m.renderStatusAndInput(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

func (m model) renderPreview(height int) string {
	var b strings.Builder

	pad := func(used int) {
		for i := used; i < height; i++ {
			b.WriteString("\n")
		}
	}

	if m.cursor >= len(m.overviews) {
		b.WriteString(previewEmptyStyle.Render("No environment selected"))
		b.WriteString("\n")
		pad(1)
		return b.String()
	}

	ov := m.overviews[m.cursor]

	if m.progressName == ov.Env.Name && m.progressSink != nil {
		phase := m.progressSink.Phase()
		if phase == "" {
			phase = "Creating..."
		}
		b.WriteString(previewEmptyStyle.Render(fmt.Sprintf("[%s] %s", ov.Env.Name, phase)))
		b.WriteString("\n")
		pad(1)
		return b.String()
	}

	preview, ok := m.previews[ov.Env.Name]
	if !ok || strings.TrimSpace(preview) == "" {
		hint := "Waiting for output..."
		if !ov.Ready {
			hint = "Environment not ready yet"
		}
		b.WriteString(previewEmptyStyle.Render(hint))
		b.WriteString("\n")
		pad(1)
		return b.String()
	}

	lines := strings.Split(strings.TrimRight(preview, "\n"), "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for _, line := range lines {
		if lipgloss.Width(line) > m.width-4 {
			line = line[:m.width-4]
		}
		b.WriteString(previewStyle.Render(line))
		b.WriteString("\n")
	}
	pad(len(lines))
	return b.String()
}

func (m model) renderEnv(index int, ov cove.Overview) string {
	cursor := "  "
	nStyle := nameStyle
	if index == m.cursor {
		cursor = "▸ "
		nStyle = selectedNameStyle
	}

	icon, iStyle := envIcon(ov)

	var parts []string
	parts = append(parts, fmt.Sprintf("  %s%s %s", cursor, iStyle.Render(icon), nStyle.Render(ov.Env.Name)))
	parts = append(parts, branchStyle.Render(ov.Env.Branch))

	if label, lStyle, ok := agentLabel(ov.Agent.Status); ok {
		parts = append(parts, lStyle.Render(label))
	}

	// Ports sorted by label for stable display.
	labels := make([]string, 0, len(ov.Env.Ports))
	for l := range ov.Env.Ports {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		parts = append(parts, portStyle.Render(fmt.Sprintf("%s:%d", l, ov.Env.Ports[l])))
	}

	return strings.Join(parts, "  ")
}

// envIcon reflects agent state for ready environments and readiness
// otherwise.
func envIcon(ov cove.Overview) (string, lipgloss.Style) {
	if !ov.Ready {
		return "◌", notReadyStyle
	}
	switch ov.Agent.Status {
	case agent.StatusRunning:
		return "●", agentRunning
	case agent.StatusBlocked:
		return "◎", agentBlocked
	case agent.StatusCompleted:
		return "✓", agentDone
	case agent.StatusFailed, agent.StatusIndeterminate:
		return "✗", agentFailed
	default:
		return "●", readyStyle
	}
}

func agentLabel(st agent.Status) (string, lipgloss.Style, bool) {
	switch st {
	case agent.StatusBlocked:
		return "blocked", agentBlocked, true
	case agent.StatusCompleted:
		return "done", agentDone, true
	case agent.StatusFailed:
		return "failed", agentFailed, true
	case agent.StatusIndeterminate:
		return "unclear", agentFailed, true
	default:
		// Running shows via the icon alone; absent shows nothing.
		return "", lipgloss.Style{}, false
	}
}

func (m model) renderStatusAndInput(b *strings.Builder) {
	if m.message != "" {
		if m.isError {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(messageStyle.Render(m.message))
		}
		b.WriteString("\n")
	}
	if m.commanding {
		b.WriteString("  ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
}

func (m model) renderHelpOverlay(base string) string {
	help := strings.Join([]string{
		helpHeaderStyle.Render("Navigation"),
		helpKeyStyle.Render("  ↑/k  ↓/j") + helpDescStyle.Render("   Select environment"),
		helpKeyStyle.Render("  Enter") + helpDescStyle.Render("       Connect (tmux attach)"),
		"",
		helpHeaderStyle.Render("Actions"),
		helpKeyStyle.Render("  n") + helpDescStyle.Render("           New environment"),
		helpKeyStyle.Render("  x") + helpDescStyle.Render("           Remove selected environment"),
		helpKeyStyle.Render("  r") + helpDescStyle.Render("           Restart background services"),
		helpKeyStyle.Render("  d") + helpDescStyle.Render("           Diff selected environment"),
		"",
		helpHeaderStyle.Render("Commands"),
		helpKeyStyle.Render("  /") + helpDescStyle.Render("           Open command bar"),
		helpDescStyle.Render("  /new <name> [task]"),
		helpDescStyle.Render("  /rm <name> [--force]"),
		helpDescStyle.Render("  /connect <name>"),
		helpDescStyle.Render("  /run <name>"),
		"",
		helpKeyStyle.Render("  q") + helpDescStyle.Render("  quit") + "     " + helpKeyStyle.Render("?") + helpDescStyle.Render("  close this help"),
	}, "\n")

	modal := helpStyle.Render(help)
	modalWidth := lipgloss.Width(modal)
	modalHeight := lipgloss.Height(modal)

	baseLines := strings.Split(base, "\n")
	xOffset := max(0, (m.width-modalWidth)/2)
	yOffset := max(0, (m.height-modalHeight)/2)

	modalLines := strings.Split(modal, "\n")
	for i, mLine := range modalLines {
		row := yOffset + i
		if row < len(baseLines) {
			padding := strings.Repeat(" ", xOffset)
			baseLines[row] = padding + mLine + strings.Repeat(" ", max(0, m.width-xOffset-lipgloss.Width(mLine)))
		}
	}

	return strings.Join(baseLines, "\n")
}
