package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pkt.systems/quarterdeck/schema"
)

// Dispatch decodes one wire command, routes it to the typed surface,
// and encodes the outcome. Failures never escape as Go errors; they are
// classified into the Result.
func (s *service) Dispatch(ctx context.Context, cmd schema.Command) schema.Result {
	if cmd.TimeoutMS > 0 {
		ctx = WithTimeout(ctx, time.Duration(cmd.TimeoutMS)*time.Millisecond)
	}
	target := Target{Index: cmd.Tab}

	switch cmd.Method {
	case schema.MethodStatus:
		return encode(s.Status(ctx))

	case schema.MethodListTabs:
		return encode(s.ListTabs(ctx))

	case schema.MethodCreateTab:
		var args schema.CreateTabArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return encode(s.CreateTab(ctx, args))

	case schema.MethodCloseTab:
		index, err := requireIndex(cmd, "close_tab")
		if err != nil {
			return schema.ErrResult(err)
		}
		return schema.ErrResult(s.CloseTab(ctx, index))

	case schema.MethodSwitchTab:
		index, err := requireIndex(cmd, "switch_tab")
		if err != nil {
			return schema.ErrResult(err)
		}
		return schema.ErrResult(s.SwitchTab(ctx, index))

	case schema.MethodGetPageInfo:
		return encode(s.GetPageInfo(ctx, target))

	case schema.MethodNavigate:
		var args schema.NavigateArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return schema.ErrResult(s.Navigate(ctx, target, args.URL))

	case schema.MethodClickElement:
		var args schema.ClickArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return schema.ErrResult(s.ClickElement(ctx, target, args))

	case schema.MethodFillInput:
		var args schema.FillArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return schema.ErrResult(s.FillInput(ctx, target, args))

	case schema.MethodGoBack:
		return schema.ErrResult(s.GoBack(ctx, target))

	case schema.MethodGoForward:
		return schema.ErrResult(s.GoForward(ctx, target))

	case schema.MethodRefresh:
		return schema.ErrResult(s.Refresh(ctx, target))

	case schema.MethodListElements:
		return encode(s.ListElements(ctx, target))

	case schema.MethodExecuteScript:
		var args schema.ExecuteScriptArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return encode(s.ExecuteScript(ctx, target, args.Script))

	case schema.MethodExecuteTerminalCommand:
		var args schema.ExecuteCommandArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return encode(s.ExecuteTerminalCommand(ctx, target, args.Command))

	case schema.MethodGetCurrentDirectory:
		return encode(s.GetCurrentDirectory(ctx, target))

	case schema.MethodSendChatMessage:
		var args schema.SendChatArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return schema.ErrResult(err)
		}
		return encode(s.SendChatMessage(ctx, target, args))

	default:
		return schema.ErrResult(fmt.Errorf("%w: %q", schema.ErrUnknownMethod, cmd.Method))
	}
}

func encode[T any](value T, err error) schema.Result {
	if err != nil {
		return schema.ErrResult(err)
	}
	return schema.OKResult(value)
}

// decodeArgs decodes strict JSON arguments. Unknown fields are rejected
// so misspelled argument names fail loudly instead of being ignored.
func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing args", schema.ErrInvalidArgument)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidArgument, err)
	}
	return nil
}

// requireIndex resolves the tab position for registry commands that act
// on an explicit tab. The position rides in the envelope's tab field or
// an index argument; one of the two must be present.
func requireIndex(cmd schema.Command, method string) (int, error) {
	if cmd.Tab != nil {
		return *cmd.Tab, nil
	}
	if len(cmd.Args) > 0 {
		var args schema.TabIndexArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return 0, err
		}
		return args.Index, nil
	}
	return 0, fmt.Errorf("%w: %s needs a tab index", schema.ErrInvalidArgument, method)
}
