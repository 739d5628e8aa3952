package core

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/schema"
)

// tab tracks the state of a single session. Fields below the queue
// markers are guarded by the service mutex; the queue itself is drained
// by one worker goroutine per tab, which is what serializes adapter
// operations within a tab.
type tab struct {
	id   schema.TabID
	kind schema.TabKind

	// browser state
	page      PageEngine
	url       string
	title     string
	loadState schema.LoadState

	// terminal state
	cwd      string
	lastExit int

	// chat state
	transcript  []schema.ChatMessage
	chatPending bool

	closed bool

	ops     chan *pendingOp
	quit    chan struct{}
	drained chan struct{}
}

// pendingOp is one issued-but-not-yet-completed adapter operation. The
// done channel is buffered so a worker never blocks on an abandoned
// caller; an outcome delivered after timeout is simply never read.
type pendingOp struct {
	id       uint64
	method   schema.Method
	issuedAt time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	run      func(ctx context.Context) (any, error)
	done     chan opOutcome
}

type opOutcome struct {
	value any
	err   error
}

func newTab(id schema.TabID, kind schema.TabKind, queueDepth int) *tab {
	return &tab{
		id:        id,
		kind:      kind,
		loadState: schema.LoadStateBlank,
		ops:       make(chan *pendingOp, queueDepth),
		quit:      make(chan struct{}),
		drained:   make(chan struct{}),
	}
}

// worker drains the tab's operation queue one at a time, in submission
// order. It exits when the tab closes, failing anything still queued.
func (t *tab) worker(log pslog.Logger) {
	defer close(t.drained)
	for {
		// quit wins over queued work so nothing runs after close
		select {
		case <-t.quit:
			t.failQueued()
			return
		default:
		}
		select {
		case op := <-t.ops:
			t.serve(op, log)
		case <-t.quit:
			t.failQueued()
			return
		}
	}
}

// failQueued rejects everything still queued on a closed tab.
func (t *tab) failQueued() {
	for {
		select {
		case op := <-t.ops:
			op.done <- opOutcome{err: schema.ErrNoSuchTab}
			op.cancel()
		default:
			return
		}
	}
}

func (t *tab) serve(op *pendingOp, log pslog.Logger) {
	value, err := op.run(op.ctx)
	op.done <- opOutcome{value: value, err: err}
	op.cancel()
	if err != nil && op.ctx.Err() != nil {
		log.Debug("tab op abandoned", "op", op.id, "method", op.method, "age_ms", time.Since(op.issuedAt).Milliseconds())
	}
}

// appendMessage extends the transcript, dropping the oldest entries
// past the retention bound. Caller holds the service mutex.
func (t *tab) appendMessage(msg schema.ChatMessage, max int) {
	t.transcript = append(t.transcript, msg)
	if max > 0 && len(t.transcript) > max {
		t.transcript = t.transcript[len(t.transcript)-max:]
	}
}

// snapshot builds the transport view. Caller holds the service mutex.
func (t *tab) snapshot(index int, active bool) schema.TabSnapshot {
	snap := schema.TabSnapshot{
		Index:   index,
		ID:      t.id,
		Kind:    t.kind,
		Summary: t.summary(),
		Active:  active,
	}
	if t.kind == schema.TabKindBrowser {
		snap.URL = t.url
		snap.Title = t.title
		snap.LoadState = t.loadState
	}
	return snap
}

func (t *tab) summary() string {
	switch t.kind {
	case schema.TabKindBrowser:
		if t.title != "" {
			return t.title
		}
		if t.url != "" {
			return t.url
		}
		return string(schema.LoadStateBlank)
	case schema.TabKindTerminal:
		return t.cwd
	case schema.TabKindChat:
		return fmt.Sprintf("%d messages", len(t.transcript))
	default:
		return ""
	}
}
