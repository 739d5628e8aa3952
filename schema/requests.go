package schema

// Typed argument and result payloads for the command surface. These are
// what Command.Args decodes into and what Result.Value encodes from.

// Registry operations.

// StatusResult reports registry shape without mutating it.
type StatusResult struct {
	TabCount    int `json:"tab_count"`
	ActiveIndex int `json:"active_index"`
}

// ListTabsResult reports the ordered tab sequence.
type ListTabsResult struct {
	Tabs []TabSnapshot `json:"tabs"`
}

// CreateTabArgs describes a create_tab request. URL applies to browser
// tabs only and overrides the configured start URL.
type CreateTabArgs struct {
	Kind TabKind `json:"kind"`
	URL  string  `json:"url,omitempty"`
}

// CreateTabResult reports the position of the created tab.
type CreateTabResult struct {
	Index int `json:"index"`
}

// TabIndexArgs targets a tab by its current position.
type TabIndexArgs struct {
	Index int `json:"index"`
}

// Browser operations.

// NavigateArgs describes a navigate request.
type NavigateArgs struct {
	URL string `json:"url"`
}

// ClickArgs describes a click_element request. Exactly one of Selector,
// ElementID, and Position must be set.
type ClickArgs struct {
	Selector  string    `json:"selector,omitempty"`
	ElementID string    `json:"element_id,omitempty"`
	Position  *Position `json:"position,omitempty"`
}

// FillArgs describes a fill_input request. Exactly one of Selector and
// ElementID must be set.
type FillArgs struct {
	Text      string `json:"text"`
	Selector  string `json:"selector,omitempty"`
	ElementID string `json:"element_id,omitempty"`
}

// ListElementsResult reports the interactive elements on the page.
type ListElementsResult struct {
	Elements []Element `json:"elements"`
}

// ExecuteScriptArgs describes an execute_script request.
type ExecuteScriptArgs struct {
	Script string `json:"script"`
}

// ExecuteScriptResult carries the script's JSON value.
type ExecuteScriptResult struct {
	Value any `json:"value"`
}

// Terminal operations.

// ExecuteCommandArgs describes an execute_terminal_command request.
type ExecuteCommandArgs struct {
	Command string `json:"command"`
}

// ExecuteCommandResult reports the outcome of one shell command.
type ExecuteCommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Cwd      string `json:"cwd"`
}

// CwdResult reports a terminal tab's working directory.
type CwdResult struct {
	Cwd string `json:"cwd"`
}

// Chat operations.

// SendChatArgs describes a send_chat_message request. Assistant selects
// a configured backend by name or ordinal; empty or "all" fans out to
// every backend.
type SendChatArgs struct {
	Message   string `json:"message"`
	Assistant string `json:"assistant,omitempty"`
}

// SendChatResult carries the assistant response text.
type SendChatResult struct {
	Response string `json:"response"`
}
