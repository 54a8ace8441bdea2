package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zpdzap/coves/internal/compose"
	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/coverr"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize coves in the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir, err := os.Getwd()
			if err != nil {
				return err
			}

			if config.Exists(projectDir) {
				fmt.Println("Coves already initialized in this project.")
				return nil
			}

			detection := config.Detect(projectDir)
			cfg := &config.Config{
				Version: "1",
				Project: filepath.Base(projectDir),
				Compose: config.ComposeConfig{Service: config.DefaultComposeService},
				Agent:   config.AgentConfig{Program: config.DefaultAgentProgram},
				Ready: config.ReadyConfig{
					Marker:         config.DefaultReadyMarker,
					TimeoutSeconds: config.DefaultReadyTimeout,
				},
				Ports:    detection.Ports,
				Services: detection.Services,
			}

			if err := cfg.Save(projectDir); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			if err := config.Scaffold(projectDir, cfg); err != nil {
				return err
			}

			fmt.Printf("Initialized coves for %s (%s project)\n", cfg.Project, detection.Language)
			fmt.Printf("  Config: %s/%s\n", config.Dir, config.ConfigFile)
			fmt.Printf("  Template: %s/%s\n", config.Dir, config.TemplateFile)
			fmt.Println("\nRun `cove` to launch the dashboard, or `cove new <name>` directly.")
			return nil
		},
	}
}

func newCmd() *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "new <name> [task description]",
		Short: "Create an environment (and submit a task when given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			rep := reporter(cmd)
			task := strings.Join(args[1:], " ")

			env, err := mgr.Create(cmd.Context(), args[0], base, task, rep)
			if err != nil {
				return report(rep, err)
			}

			fmt.Printf("Environment %s is ready\n", env.Name)
			fmt.Printf("  Branch:    %s\n", env.Branch)
			fmt.Printf("  Worktree:  %s\n", env.WorktreePath)
			for _, label := range sortedPortLabels(env.Ports) {
				fmt.Printf("  Port %-6s localhost:%d\n", label+":", env.Ports[label])
			}
			if task != "" {
				fmt.Printf("  Task submitted — `cove agent status %s` to check on it\n", env.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base ref for the new branch (default: current branch)")
	addReportFlag(cmd)
	return cmd
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			overviews, err := mgr.InspectAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(overviews) == 0 {
				fmt.Println("No environments. Run `cove new <name>` to create one.")
				return nil
			}

			for _, ov := range overviews {
				fmt.Printf("%s %-20s %-24s %-8s %-8s %s\n",
					readyIcon(ov.Ready),
					ov.Env.Name,
					ov.Env.Branch,
					readyWord(ov.Ready),
					ov.Agent.Status,
					formatPorts(ov.Env.Ports))
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show one environment in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return err
			}
			ov := mgr.Inspect(cmd.Context(), env)

			fmt.Printf("Environment: %s\n", env.Name)
			fmt.Printf("  Branch:    %s\n", env.Branch)
			fmt.Printf("  Network:   %s\n", env.Network)
			fmt.Printf("  Worktree:  %s\n", env.WorktreePath)
			fmt.Printf("  Created:   %s\n", env.CreatedAt.Format("2006-01-02 15:04 MST"))
			fmt.Printf("  Ready:     %s\n", readyWord(ov.Ready))
			fmt.Printf("  Agent:     %s\n", ov.Agent.Status)
			if ov.Agent.Result != nil && ov.Agent.Result.Summary != "" {
				fmt.Printf("  Summary:   %s\n", ov.Agent.Result.Summary)
			}
			for _, label := range sortedPortLabels(env.Ports) {
				fmt.Printf("  Port %-6s localhost:%d\n", label+":", env.Ports[label])
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Restart the configured background services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return err
			}
			if !mgr.Ready(cmd.Context(), env) {
				return coverr.Newf(coverr.EReadyTimeout,
					"environment %s is not ready yet; `cove status %s` to check", env.Name, env.Name)
			}
			n, err := mgr.RunServices(cmd.Context(), env)
			if err != nil {
				return err
			}
			fmt.Printf("%d services running in %s\n", n, env.Name)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop the configured background services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return err
			}
			n, err := mgr.StopServices(cmd.Context(), env)
			if err != nil {
				return err
			}
			fmt.Printf("%d services stopped in %s\n", n, env.Name)
			return nil
		},
	}
}

func logsCmd() *cobra.Command {
	var follow bool
	var tail int
	cmd := &cobra.Command{
		Use:   "logs <name> [service]",
		Short: "Show container logs for an environment",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return err
			}
			service := ""
			if len(args) > 1 {
				service = args[1]
			}

			if follow {
				c := compose.FollowLogsCmd(env, service, tail)
				c.Stdout = os.Stdout
				c.Stderr = os.Stderr
				return c.Run()
			}

			out, err := mgr.Logs(cmd.Context(), env, service, tail)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream logs until interrupted")
	cmd.Flags().IntVar(&tail, "tail", 200, "number of trailing lines")
	return cmd
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <name>",
		Short: "Open an interactive shell inside the dev container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return coverr.New(coverr.ENoTTY, "shell needs an interactive terminal")
			}
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return err
			}
			c, err := mgr.ShellCmd(cmd.Context(), env)
			if err != nil {
				return err
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		},
	}
}

func rmCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Tear an environment down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			rep := reporter(cmd)
			if err := mgr.Remove(cmd.Context(), args[0], force, rep); err != nil {
				return report(rep, err)
			}
			fmt.Printf("Removed environment %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "escalate to privileged cleanup when normal removal is blocked")
	addReportFlag(cmd)
	return cmd
}

func sortedPortLabels(ports map[string]int) []string {
	labels := make([]string, 0, len(ports))
	for l := range ports {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func formatPorts(ports map[string]int) string {
	var parts []string
	for _, l := range sortedPortLabels(ports) {
		parts = append(parts, fmt.Sprintf("%s:%d", l, ports[l]))
	}
	return strings.Join(parts, " ")
}

var (
	readyDot   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	pendingDot = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
)

// readyIcon degrades to ASCII when stdout is not a terminal; lipgloss
// itself drops the color codes there.
func readyIcon(ready bool) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		if ready {
			return "*"
		}
		return "-"
	}
	if ready {
		return readyDot.Render("●")
	}
	return pendingDot.Render("◌")
}

func readyWord(ready bool) string {
	if ready {
		return "ready"
	}
	return "pending"
}
