package schema

import (
	"encoding/json"
	"fmt"
)

// Method names the command surface. The set is closed; the dispatcher
// rejects anything else before touching the registry.
type Method string

const (
	// MethodStatus reports tab count and active index.
	MethodStatus Method = "status"
	// MethodListTabs lists the current tab sequence.
	MethodListTabs Method = "list_tabs"
	// MethodCreateTab creates a tab of the requested kind.
	MethodCreateTab Method = "create_tab"
	// MethodCloseTab closes the tab at the given position.
	MethodCloseTab Method = "close_tab"
	// MethodSwitchTab activates the tab at the given position.
	MethodSwitchTab Method = "switch_tab"
	// MethodGetPageInfo reports url, title, and load state of a browser tab.
	MethodGetPageInfo Method = "get_page_info"
	// MethodNavigate loads a URL in a browser tab.
	MethodNavigate Method = "navigate"
	// MethodClickElement clicks an element by selector, id, or position.
	MethodClickElement Method = "click_element"
	// MethodFillInput fills a text input by selector or id.
	MethodFillInput Method = "fill_input"
	// MethodGoBack navigates back in a browser tab's history.
	MethodGoBack Method = "go_back"
	// MethodGoForward navigates forward in a browser tab's history.
	MethodGoForward Method = "go_forward"
	// MethodRefresh reloads the current page of a browser tab.
	MethodRefresh Method = "refresh"
	// MethodListElements inventories interactive elements on the page.
	MethodListElements Method = "list_elements"
	// MethodExecuteScript evaluates raw JavaScript in a browser tab.
	MethodExecuteScript Method = "execute_script"
	// MethodExecuteTerminalCommand runs a shell command in a terminal tab.
	MethodExecuteTerminalCommand Method = "execute_terminal_command"
	// MethodGetCurrentDirectory reports a terminal tab's working directory.
	MethodGetCurrentDirectory Method = "get_current_directory"
	// MethodSendChatMessage sends a message to a chat tab's assistant.
	MethodSendChatMessage Method = "send_chat_message"
)

// Command is the wire envelope decoded by the transport and handed to
// the dispatcher. Tab is a position in the current sequence; when nil the
// command targets the active tab at dispatch time.
type Command struct {
	Method    Method          `json:"method"`
	Tab       *int            `json:"tab,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	TimeoutMS int             `json:"timeout_ms,omitempty"`
}

// Result is the uniform response for every command. Exactly one of
// Value and Error is populated.
type Result struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error *ResultError    `json:"error,omitempty"`
}

// ResultError carries the classified failure returned to the caller.
type ResultError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// OKResult wraps a value into a successful Result.
func OKResult(value any) Result {
	if value == nil {
		return Result{OK: true}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrResult(fmt.Errorf("%w: encode result: %v", ErrBackendUnavailable, err))
	}
	return Result{OK: true, Value: data}
}

// ErrResult wraps an error into a failed Result.
func ErrResult(err error) Result {
	if err == nil {
		return Result{OK: true}
	}
	return Result{Error: &ResultError{Kind: KindOf(err), Message: err.Error()}}
}

// Err converts a failed Result back into a sentinel-classified error.
// Successful results return nil.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	var sentinel error
	switch r.Error.Kind {
	case KindInvalidArgument:
		sentinel = ErrInvalidArgument
	case KindNoSuchTab:
		sentinel = ErrNoSuchTab
	case KindNoActiveTab:
		sentinel = ErrNoActiveTab
	case KindNotFound:
		sentinel = ErrNotFound
	case KindTabBusy:
		sentinel = ErrTabBusy
	case KindTimeout:
		sentinel = ErrTimeout
	default:
		sentinel = ErrBackendUnavailable
	}
	return fmt.Errorf("%w: %s", sentinel, r.Error.Message)
}
