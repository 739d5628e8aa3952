package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/creack/pty"
	"pkt.systems/quarterdeck/core"
)

// runPTY executes the command under a pseudo terminal. Stdout and
// stderr arrive merged on the PTY, so stderr stays empty.
func runPTY(ctx context.Context, cmd *exec.Cmd) (core.ShellResult, error) {
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	tty, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 120})
	if err != nil {
		return core.ShellResult{}, fmt.Errorf("start pty: %w", err)
	}
	defer tty.Close()

	var output bytes.Buffer
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		// the PTY read fails with EIO when the child exits; that is
		// the normal end of stream, not an error
		io.Copy(&output, tty)
	}()

	err = cmd.Wait()
	<-copied

	result := core.ShellResult{Stdout: output.String()}
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
