package schema

// TabEventType identifies a tab lifecycle transition.
type TabEventType string

const (
	// TabEventCreated marks a tab added to the registry.
	TabEventCreated TabEventType = "created"
	// TabEventClosed marks a tab removed from the registry.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated marks a change of the active tab.
	TabEventActivated TabEventType = "activated"
	// TabEventUpdated marks a state change on an existing tab.
	TabEventUpdated TabEventType = "updated"
)

// TabEvent reports a tab lifecycle transition to event sinks.
type TabEvent struct {
	Type        TabEventType `json:"type"`
	Tab         TabSnapshot  `json:"tab"`
	ActiveIndex int          `json:"active_index"`
}

// CommandOutcome classifies how a dispatched command finished.
type CommandOutcome string

const (
	// CommandOutcomeOK marks a successful completion.
	CommandOutcomeOK CommandOutcome = "ok"
	// CommandOutcomeError marks a completion with a classified error.
	CommandOutcomeError CommandOutcome = "error"
	// CommandOutcomeTimeout marks an abandoned command.
	CommandOutcomeTimeout CommandOutcome = "timeout"
)

// CommandEvent reports one dispatched command's completion to event sinks.
type CommandEvent struct {
	CommandID  uint64         `json:"command_id"`
	Method     Method         `json:"method"`
	TabID      TabID          `json:"tab_id,omitempty"`
	Outcome    CommandOutcome `json:"outcome"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}
