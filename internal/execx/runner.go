// Package execx wraps external command execution behind a small
// interface so git/docker/tmux interactions can be faked in tests.
package execx

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Result holds the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, trimmed.
func (r Result) Combined() string {
	out := r.Stdout
	if r.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += r.Stderr
	}
	return strings.TrimSpace(out)
}

// Opts holds optional execution parameters.
type Opts struct {
	Dir string            // working directory
	Env map[string]string // extra environment overlay
}

// Runner executes external commands. Run returns an error only when the
// process could not be executed at all (missing binary, canceled
// context); a non-zero exit is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts Opts) (Result, error)
}

// Real is the production Runner backed by os/exec.
type Real struct{}

// NewReal returns the production runner.
func NewReal() *Real { return &Real{} }

func (r *Real) Run(ctx context.Context, name string, args []string, opts Opts) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
