// Package shell executes terminal tab commands on the local host. Each
// command runs in its own shell invocation; the working directory is
// threaded between invocations by capturing where the command ended up.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/core"
)

// waitDelay bounds how long a killed command's Wait may linger on
// output pipes held open by orphaned children.
const waitDelay = 3 * time.Second

// Config controls how commands are executed.
type Config struct {
	// Shell is the interpreter binary. Defaults to $SHELL, then /bin/sh.
	Shell string
	// UsePTY runs commands under a pseudo terminal. Output arrives as a
	// single merged stream and some programs behave differently, but
	// commands that demand a TTY work.
	UsePTY bool
	// Env extends the inherited environment, KEY=VALUE entries.
	Env []string
}

// Runner implements the dispatcher's shell backend.
type Runner struct {
	shell  string
	usePTY bool
	env    []string
	log    pslog.Logger
}

var _ core.Shell = (*Runner)(nil)

// New constructs a Runner.
func New(cfg Config, logger pslog.Logger) *Runner {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	shell := cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Runner{
		shell:  shell,
		usePTY: cfg.UsePTY,
		env:    cfg.Env,
		log:    logger,
	}
}

// Execute runs one command in req.WorkingDir and reports its streams,
// exit code, and the directory it left behind.
func (r *Runner) Execute(ctx context.Context, req core.ShellRequest) (core.ShellResult, error) {
	cwdFile, err := os.CreateTemp("", "quarterdeck-cwd-*")
	if err != nil {
		return core.ShellResult{}, fmt.Errorf("cwd capture: %w", err)
	}
	cwdPath := cwdFile.Name()
	cwdFile.Close()
	defer os.Remove(cwdPath)

	// the trailing pwd capture runs regardless of the command's exit
	// code so cd followed by a failing command still moves the tab
	wrapped := fmt.Sprintf("%s\n__qd_status=$?\npwd > %s\nexit $__qd_status", req.Command, shellQuote(cwdPath))

	cmd := exec.CommandContext(ctx, r.shell, "-c", wrapped)
	cmd.Dir = req.WorkingDir
	cmd.Env = append(os.Environ(), r.env...)
	// orphaned children can hold the output pipes open after the kill;
	// WaitDelay bounds how long Wait lingers on them
	cmd.WaitDelay = waitDelay

	result, err := r.runCmd(ctx, cmd)
	if err != nil {
		return core.ShellResult{}, err
	}
	if data, err := os.ReadFile(cwdPath); err == nil {
		if cwd := strings.TrimSpace(string(data)); cwd != "" && filepath.IsAbs(cwd) {
			result.WorkingDir = cwd
		}
	}
	if result.WorkingDir == "" {
		result.WorkingDir = req.WorkingDir
	}
	r.log.Debug("shell command done", "exit", result.ExitCode, "cwd", result.WorkingDir)
	return result, nil
}

func (r *Runner) runCmd(ctx context.Context, cmd *exec.Cmd) (core.ShellResult, error) {
	if r.usePTY {
		return runPTY(ctx, cmd)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	result := core.ShellResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	var exitErr *exec.ExitError
	switch {
	// a kill on ctx expiry surfaces as an ExitError too, so the ctx
	// check must come first or the cancellation is reported as exit -1
	case ctx.Err() != nil:
		return core.ShellResult{}, ctx.Err()
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return core.ShellResult{}, fmt.Errorf("run command: %w", err)
	}
	return result, nil
}

// shellQuote wraps a path in single quotes for safe interpolation.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
