package schema

// TabID identifies a tab for the lifetime of the registry. IDs are
// assigned monotonically and never reused after a tab closes.
type TabID int64

// TabKind identifies the capability variant of a tab.
type TabKind string

const (
	// TabKindBrowser hosts a web page driven through the page engine.
	TabKindBrowser TabKind = "browser"
	// TabKindTerminal hosts a shell session on the local host.
	TabKindTerminal TabKind = "terminal"
	// TabKindChat hosts a conversation with an assistant backend.
	TabKindChat TabKind = "chat"
)

// Valid reports whether the kind names a known tab variant.
func (k TabKind) Valid() bool {
	switch k {
	case TabKindBrowser, TabKindTerminal, TabKindChat:
		return true
	default:
		return false
	}
}

// LoadState describes the page load status of a browser tab.
type LoadState string

const (
	// LoadStateBlank marks a browser tab before its first navigation.
	LoadStateBlank LoadState = "blank"
	// LoadStateLoading marks a navigation in progress.
	LoadStateLoading LoadState = "loading"
	// LoadStateComplete marks a finished page load.
	LoadStateComplete LoadState = "complete"
	// LoadStateFailed marks a navigation that did not complete.
	LoadStateFailed LoadState = "failed"
)

// NoActiveTab is the active index reported when the registry is empty.
const NoActiveTab = -1

// TabSnapshot is a transport-friendly view of one tab. URL, Title, and
// LoadState are populated for browser tabs only.
type TabSnapshot struct {
	Index     int       `json:"index"`
	ID        TabID     `json:"id"`
	Kind      TabKind   `json:"kind"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	LoadState LoadState `json:"load_state,omitempty"`
	Active    bool      `json:"active"`
}

// PageInfo describes the current page of a browser tab.
type PageInfo struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	LoadState LoadState `json:"load_state"`
}

// Position is a viewport coordinate used for position-based clicks.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element describes one interactive element found on a page. ID is the
// DOM id attribute when the element has one, otherwise a synthesized
// positional handle (el-N) valid until the next page mutation.
type Element struct {
	ID         string            `json:"id"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ChatRole identifies the author of a transcript entry.
type ChatRole string

const (
	// ChatRoleUser marks a message sent by the caller.
	ChatRoleUser ChatRole = "user"
	// ChatRoleAssistant marks a response from an assistant backend.
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry in a chat tab's transcript.
type ChatMessage struct {
	Role      ChatRole `json:"role"`
	Assistant string   `json:"assistant,omitempty"`
	Text      string   `json:"text"`
}
