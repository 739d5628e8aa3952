package core

import (
	"context"
	"encoding/json"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/schema"
)

// PageEngine drives one browser page. Implementations own the page for
// the lifetime of its tab and are called from a single goroutine.
type PageEngine interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	Info(ctx context.Context) (schema.PageInfo, error)
	Elements(ctx context.Context) ([]schema.Element, error)
	// Click resolves the target and clicks it. The bool result reports
	// whether the target resolved to an element.
	Click(ctx context.Context, target ElementTarget) (bool, error)
	// Fill sets the value of a text input and dispatches an input event.
	Fill(ctx context.Context, text string, target ElementTarget) (bool, error)
	Evaluate(ctx context.Context, script string) (json.RawMessage, error)
	Close() error
}

// ElementTarget addresses a DOM element by selector, id attribute, or
// viewport position. Exactly one field is set.
type ElementTarget struct {
	Selector  string
	ElementID string
	Position  *schema.Position
}

// PageProvider creates page engines for browser tabs.
type PageProvider interface {
	NewPage(ctx context.Context) (PageEngine, error)
}

// Shell executes one command and reports its streams, exit code, and
// the working directory the command left behind.
type Shell interface {
	Execute(ctx context.Context, req ShellRequest) (ShellResult, error)
}

// ShellRequest describes one shell command invocation.
type ShellRequest struct {
	WorkingDir string
	Command    string
}

// ShellResult describes the outcome of one shell command.
type ShellResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	WorkingDir string
}

// Assistant submits a chat message out-of-band and returns the response
// text. The selector picks a configured backend; empty means all.
type Assistant interface {
	Send(ctx context.Context, selector, message string) (string, error)
}

// EventSink receives push events emitted by the core.
type EventSink interface {
	OnTabEvent(schema.TabEvent)
	OnCommandEvent(schema.CommandEvent)
}

// ServiceDeps captures the collaborators of the dispatcher core. Pages,
// Shell, and Assistant may be nil; operations against a missing backend
// fail with ErrBackendUnavailable.
type ServiceDeps struct {
	Pages     PageProvider
	Shell     Shell
	Assistant Assistant
	EventSink EventSink
	Logger    pslog.Logger
}
