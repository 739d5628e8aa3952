package core

import (
	"context"

	"pkt.systems/quarterdeck/schema"
)

// Target addresses a tab by its current position. A zero Target means
// the active tab at dispatch time.
type Target struct {
	Index *int
}

// ActiveTab targets the registry's active tab.
func ActiveTab() Target {
	return Target{}
}

// TabAt targets the tab at the given position.
func TabAt(index int) Target {
	return Target{Index: &index}
}

// Service is the dispatcher core: registry operations plus the typed
// command surface. Dispatch is the wire entry point; the typed methods
// serve in-process callers. All errors are sentinel-classified.
type Service interface {
	// Dispatch translates one wire command into one Result. It never
	// returns an error; failures are encoded into the Result.
	Dispatch(ctx context.Context, cmd schema.Command) schema.Result

	// Registry operations. These are fast, never queued, and safe to
	// call while adapter operations are pending.
	Status(ctx context.Context) (schema.StatusResult, error)
	ListTabs(ctx context.Context) (schema.ListTabsResult, error)
	CreateTab(ctx context.Context, args schema.CreateTabArgs) (schema.CreateTabResult, error)
	CloseTab(ctx context.Context, index int) error
	SwitchTab(ctx context.Context, index int) error

	// Browser operations.
	GetPageInfo(ctx context.Context, target Target) (schema.PageInfo, error)
	Navigate(ctx context.Context, target Target, url string) error
	ClickElement(ctx context.Context, target Target, args schema.ClickArgs) error
	FillInput(ctx context.Context, target Target, args schema.FillArgs) error
	GoBack(ctx context.Context, target Target) error
	GoForward(ctx context.Context, target Target) error
	Refresh(ctx context.Context, target Target) error
	ListElements(ctx context.Context, target Target) (schema.ListElementsResult, error)
	ExecuteScript(ctx context.Context, target Target, script string) (schema.ExecuteScriptResult, error)

	// Terminal operations.
	ExecuteTerminalCommand(ctx context.Context, target Target, command string) (schema.ExecuteCommandResult, error)
	GetCurrentDirectory(ctx context.Context, target Target) (schema.CwdResult, error)

	// Chat operations.
	SendChatMessage(ctx context.Context, target Target, args schema.SendChatArgs) (schema.SendChatResult, error)

	// Bootstrap ensures the registry holds at least one browser tab,
	// loaded with the configured start URL.
	Bootstrap(ctx context.Context) error

	// Close tears down all tabs and their backends.
	Close() error
}
