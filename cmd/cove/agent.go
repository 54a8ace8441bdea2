package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpdzap/coves/internal/agent"
	"github.com/zpdzap/coves/internal/coverr"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Drive the coding agent session inside an environment",
	}
	cmd.AddCommand(
		agentStartCmd(),
		agentStatusCmd(),
		agentStopCmd(),
		agentAttachCmd(),
		agentWaitCmd(),
	)
	return cmd
}

func agentStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <name> <task description>",
		Short: "Submit a task to the agent session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			rep := reporter(cmd)
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return report(rep, err)
			}
			if !mgr.Ready(cmd.Context(), env) {
				return report(rep, coverr.Newf(coverr.EReadyTimeout,
					"environment %s is not ready yet", env.Name))
			}
			task := strings.Join(args[1:], " ")
			if err := mgr.Session.Start(cmd.Context(), env, task); err != nil {
				return report(rep, err)
			}
			rep.Completed("agent.submitted", "task submitted")
			fmt.Printf("Task submitted to %s — `cove agent wait %s` blocks until it finishes\n",
				env.Name, env.Name)
			return nil
		},
	}
	addReportFlag(cmd)
	return cmd
}

func agentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show the agent's current state",
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
			state := mgr.Session.Status(cmd.Context(), env)
			fmt.Printf("Agent: %s\n", state.Status)
			if state.Result != nil && state.Result.Summary != "" {
				fmt.Printf("Summary: %s\n", state.Result.Summary)
			}
			if state.Status == agent.StatusIndeterminate && state.Raw != "" {
				fmt.Printf("Raw artifact:\n%s\n", state.Raw)
			}
			return nil
		},
	}
}

func agentStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Kill the agent session",
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
			if err := mgr.Session.Stop(cmd.Context(), env); err != nil {
				return err
			}
			fmt.Printf("Agent session in %s stopped\n", env.Name)
			return nil
		},
	}
}

func agentAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <name>",
		Short: "Attach the terminal to the agent session",
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
			c, err := mgr.Session.AttachCmd(env)
			if err != nil {
				return err
			}
			fmt.Printf("Attaching to %s... (detach tmux with Ctrl-B d)\n", env.Name)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		},
	}
}

func agentWaitCmd() *cobra.Command {
	var timeoutSec int
	var intervalSec int
	cmd := &cobra.Command{
		Use:   "wait <name> [task description]",
		Short: "Block until the agent reaches a terminal state",
		Long: "Wait polls the agent until it completes, blocks, or fails. " +
			"With a task argument the task is submitted first. " +
			"Combine with --report for keep-alive status events.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			rep := reporter(cmd)
			env, err := mgr.Store.Get(args[0])
			if err != nil {
				return report(rep, err)
			}

			if task := strings.Join(args[1:], " "); task != "" {
				if err := mgr.WaitReady(cmd.Context(), env); err != nil {
					return report(rep, err)
				}
				if err := mgr.Session.Start(cmd.Context(), env, task); err != nil {
					return report(rep, err)
				}
			}

			state, err := mgr.Session.Wait(cmd.Context(), env, rep,
				time.Duration(intervalSec)*time.Second,
				time.Duration(timeoutSec)*time.Second)
			if err != nil {
				return err
			}
			fmt.Printf("Agent: %s\n", state.Status)
			if state.Result != nil && state.Result.Summary != "" {
				fmt.Printf("Summary: %s\n", state.Result.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "give up after this many seconds (0 = wait forever)")
	cmd.Flags().IntVar(&intervalSec, "interval", 2, "seconds between polls")
	addReportFlag(cmd)
	return cmd
}
