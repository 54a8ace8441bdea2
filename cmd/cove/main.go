package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zpdzap/coves/internal/config"
	"github.com/zpdzap/coves/internal/cove"
	"github.com/zpdzap/coves/internal/coverr"
	"github.com/zpdzap/coves/internal/progress"
	"github.com/zpdzap/coves/internal/tui"
)

func main() {
	setupLogging()

	root := &cobra.Command{
		Use:           "cove",
		Short:         "Coves — per-branch environments for coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	root.AddCommand(
		initCmd(),
		newCmd(),
		lsCmd(),
		statusCmd(),
		runCmd(),
		stopCmd(),
		logsCmd(),
		shellCmd(),
		rmCmd(),
		agentCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(coverr.ExitCode(err))
	}
}

// setupLogging configures logrus from COVE_LOG (debug/info/warn/error).
// Operational logs go to stderr so stdout stays parseable.
func setupLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if raw := os.Getenv("COVE_LOG"); raw != "" {
		if lvl, err := logrus.ParseLevel(raw); err == nil {
			logrus.SetLevel(lvl)
		}
	}
}

// loadManager builds the Manager for the current project, or a config
// error telling the user to run `cove init`.
func loadManager() (*cove.Manager, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}
	return cove.NewManager(projectDir, cfg), nil
}

// addReportFlag registers --report on a command with a long-running
// operation behind it.
func addReportFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("report", false, "emit machine-readable COVE_STATUS events on stdout")
}

// reporter builds the progress reporter for a command: enabled by
// --report or by the COVE_STATUS environment variable.
func reporter(cmd *cobra.Command) *progress.Reporter {
	enabled, _ := cmd.Flags().GetBool("report")
	return progress.New(os.Stdout, enabled || progress.EnabledFromEnv())
}

// report emits the failing terminal event for err, then passes it on.
func report(rep *progress.Reporter, err error) error {
	if err != nil {
		rep.Failed(string(coverr.CodeOf(err)), err.Error())
	}
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	mgr, err := loadManager()
	if err != nil {
		return fmt.Errorf("not a coves project (run `cove init` first): %w", err)
	}
	return tui.Run(mgr)
}
