package core

import (
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/quarterdeck/schema"
)

func dispatch(t *testing.T, svc Service, method schema.Method, tab *int, args any) schema.Result {
	t.Helper()
	cmd := schema.Command{Method: method, Tab: tab}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			t.Fatalf("marshal args: %v", err)
		}
		cmd.Args = data
	}
	return svc.Dispatch(context.Background(), cmd)
}

func decodeValue[T any](t *testing.T, result schema.Result) T {
	t.Helper()
	var value T
	if result.Error != nil {
		t.Fatalf("unexpected error result: %+v", result.Error)
	}
	if err := json.Unmarshal(result.Value, &value); err != nil {
		t.Fatalf("decode result value: %v", err)
	}
	return value
}

func TestDispatchUnknownMethod(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	result := svc.Dispatch(context.Background(), schema.Command{Method: "teleport"})
	if result.OK || result.Error == nil {
		t.Fatalf("expected error result, got %+v", result)
	}
	if result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument, got %s", result.Error.Kind)
	}
}

func TestDispatchRejectsUnknownArgFields(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	result := svc.Dispatch(context.Background(), schema.Command{
		Method: schema.MethodCreateTab,
		Args:   json.RawMessage(`{"kind":"terminal","flavor":"spicy"}`),
	})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument for unknown field, got %+v", result)
	}
}

func TestDispatchClickNeedsExactlyOneTarget(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindBrowser)

	result := dispatch(t, svc, schema.MethodClickElement, nil, schema.ClickArgs{})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument for empty target, got %+v", result)
	}
	result = dispatch(t, svc, schema.MethodClickElement, nil, schema.ClickArgs{
		Selector:  "#go",
		ElementID: "go",
	})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument for two targets, got %+v", result)
	}
}

func TestDispatchKindMismatch(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindBrowser)

	result := dispatch(t, svc, schema.MethodExecuteTerminalCommand, nil, schema.ExecuteCommandArgs{Command: "ls"})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument for kind mismatch, got %+v", result)
	}
	result = dispatch(t, svc, schema.MethodSendChatMessage, nil, schema.SendChatArgs{Message: "hi"})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument for chat on browser tab, got %+v", result)
	}
}

func TestDispatchTargetsExplicitTab(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindBrowser)
	terminal := mustCreate(t, svc, schema.TabKindTerminal)

	// active tab is the browser; target the terminal by position
	result := dispatch(t, svc, schema.MethodExecuteTerminalCommand, &terminal, schema.ExecuteCommandArgs{Command: "whoami"})
	out := decodeValue[schema.ExecuteCommandResult](t, result)
	if out.Stdout != "whoami\n" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
}

func TestDispatchScriptedSession(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})

	status := decodeValue[schema.StatusResult](t, dispatch(t, svc, schema.MethodStatus, nil, nil))
	if status.TabCount != 0 || status.ActiveIndex != schema.NoActiveTab {
		t.Fatalf("unexpected initial status: %+v", status)
	}

	created := decodeValue[schema.CreateTabResult](t, dispatch(t, svc, schema.MethodCreateTab, nil, schema.CreateTabArgs{Kind: schema.TabKindBrowser}))
	if created.Index != 0 {
		t.Fatalf("expected browser tab at 0, got %d", created.Index)
	}
	created = decodeValue[schema.CreateTabResult](t, dispatch(t, svc, schema.MethodCreateTab, nil, schema.CreateTabArgs{Kind: schema.TabKindTerminal}))
	if created.Index != 1 {
		t.Fatalf("expected terminal tab at 1, got %d", created.Index)
	}

	// the first tab stays active until an explicit switch
	status = decodeValue[schema.StatusResult](t, dispatch(t, svc, schema.MethodStatus, nil, nil))
	if status.ActiveIndex != 0 {
		t.Fatalf("expected active 0, got %d", status.ActiveIndex)
	}
	if result := dispatch(t, svc, schema.MethodSwitchTab, nil, schema.TabIndexArgs{Index: 1}); result.Error != nil {
		t.Fatalf("switch: %+v", result.Error)
	}

	exec := decodeValue[schema.ExecuteCommandResult](t, dispatch(t, svc, schema.MethodExecuteTerminalCommand, nil, schema.ExecuteCommandArgs{Command: "echo hi"}))
	if exec.Stdout != "echo hi\n" || exec.ExitCode != 0 {
		t.Fatalf("unexpected exec result: %+v", exec)
	}

	if result := dispatch(t, svc, schema.MethodCloseTab, nil, schema.TabIndexArgs{Index: 0}); result.Error != nil {
		t.Fatalf("close: %+v", result.Error)
	}
	status = decodeValue[schema.StatusResult](t, dispatch(t, svc, schema.MethodStatus, nil, nil))
	if status.TabCount != 1 || status.ActiveIndex != 0 {
		t.Fatalf("unexpected status after close: %+v", status)
	}
	tabs := decodeValue[schema.ListTabsResult](t, dispatch(t, svc, schema.MethodListTabs, nil, nil))
	if len(tabs.Tabs) != 1 || tabs.Tabs[0].Kind != schema.TabKindTerminal {
		t.Fatalf("unexpected tabs after close: %+v", tabs.Tabs)
	}
}

func TestDispatchNormalizesURL(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindBrowser)

	if result := dispatch(t, svc, schema.MethodNavigate, nil, schema.NavigateArgs{URL: "example.com/docs"}); result.Error != nil {
		t.Fatalf("navigate: %+v", result.Error)
	}
	page := svc.provider.page(t, 0)
	page.mu.Lock()
	defer page.mu.Unlock()
	if len(page.navigated) != 1 || page.navigated[0] != "https://example.com/docs" {
		t.Fatalf("expected https scheme added, got %v", page.navigated)
	}
}

func TestDispatchEmptyURLRejected(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindBrowser)
	result := dispatch(t, svc, schema.MethodNavigate, nil, schema.NavigateArgs{URL: "   "})
	if result.Error == nil || result.Error.Kind != schema.KindInvalidArgument {
		t.Fatalf("expected invalid_argument, got %+v", result)
	}
}
