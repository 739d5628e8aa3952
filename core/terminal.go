package core

import (
	"context"
	"fmt"
	"strings"

	"pkt.systems/quarterdeck/schema"
)

func (s *service) ExecuteTerminalCommand(ctx context.Context, target Target, command string) (schema.ExecuteCommandResult, error) {
	t, err := s.resolveKind(target, schema.TabKindTerminal)
	if err != nil {
		return schema.ExecuteCommandResult{}, err
	}
	if strings.TrimSpace(command) == "" {
		return schema.ExecuteCommandResult{}, fmt.Errorf("%w: empty command", schema.ErrInvalidArgument)
	}
	if s.shell == nil {
		return schema.ExecuteCommandResult{}, fmt.Errorf("%w: no shell configured", schema.ErrBackendUnavailable)
	}
	value, err := s.run(ctx, t, schema.MethodExecuteTerminalCommand, func(opCtx context.Context) (any, error) {
		// cwd is read at execution time so queued commands observe the
		// directory changes of everything queued ahead of them
		s.mu.Lock()
		cwd := t.cwd
		s.mu.Unlock()
		res, err := s.shell.Execute(opCtx, ShellRequest{WorkingDir: cwd, Command: command})
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		s.applyIfLive(opCtx, t, func() {
			if res.WorkingDir != "" {
				t.cwd = res.WorkingDir
			}
			t.lastExit = res.ExitCode
		})
		s.emitUpdated(t)
		out := schema.ExecuteCommandResult{
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
			Cwd:      res.WorkingDir,
		}
		if out.Cwd == "" {
			out.Cwd = cwd
		}
		return out, nil
	})
	if err != nil {
		return schema.ExecuteCommandResult{}, err
	}
	return value.(schema.ExecuteCommandResult), nil
}

// GetCurrentDirectory runs through the tab queue so it reports the
// directory left behind by every command queued ahead of it.
func (s *service) GetCurrentDirectory(ctx context.Context, target Target) (schema.CwdResult, error) {
	t, err := s.resolveKind(target, schema.TabKindTerminal)
	if err != nil {
		return schema.CwdResult{}, err
	}
	value, err := s.run(ctx, t, schema.MethodGetCurrentDirectory, func(opCtx context.Context) (any, error) {
		s.mu.Lock()
		cwd := t.cwd
		s.mu.Unlock()
		return schema.CwdResult{Cwd: cwd}, nil
	})
	if err != nil {
		return schema.CwdResult{}, err
	}
	return value.(schema.CwdResult), nil
}
