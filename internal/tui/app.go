package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/coves/internal/cove"
)

// Run starts the dashboard loop. It cycles between the Bubble Tea
// dashboard and subprocess connections (tmux attach) until the user
// quits.
func Run(mgr *cove.Manager) error {
	for {
		m := newModel(mgr)
		p := tea.NewProgram(m, tea.WithAltScreen())
		result, err := p.Run()
		if err != nil {
			return fmt.Errorf("dashboard error: %w", err)
		}

		final := result.(model)

		if final.quitting {
			fmt.Println("Bye! (environments left running — use `cove rm` to tear them down)")
			return nil
		}

		if final.connectTo != "" {
			env, err := mgr.Store.Get(final.connectTo)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			fmt.Printf("Connecting to %s... (detach tmux with Ctrl-B d to return)\n", env.Name)

			cmd, err := mgr.Session.AttachCmd(env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Run()

			// Full terminal reset after tmux detach so Bubble Tea
			// starts clean.
			fmt.Print("\033c")
		}
	}
}
