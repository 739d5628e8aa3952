package core

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/quarterdeck/schema"
)

type timeoutKey struct{}

// WithTimeout overrides the command timeout for operations dispatched
// under the returned context. Overrides are clamped to the configured
// maximum.
func WithTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, timeoutKey{}, d)
}

func (s *service) commandTimeout(ctx context.Context) time.Duration {
	if d, ok := ctx.Value(timeoutKey{}).(time.Duration); ok && d > 0 {
		if d > s.cfg.MaxTimeout {
			return s.cfg.MaxTimeout
		}
		return d
	}
	return s.cfg.DefaultTimeout
}

// run enqueues fn on the tab's serialized queue and waits for the
// outcome. Each tab runs one operation at a time in enqueue order. When
// the wait ends early the operation context is canceled and whatever
// the adapter eventually returns is discarded.
func (s *service) run(ctx context.Context, t *tab, method schema.Method, fn func(ctx context.Context) (any, error)) (any, error) {
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	op := &pendingOp{
		id:       s.nextCmd.Add(1),
		method:   method,
		issuedAt: time.Now(),
		ctx:      opCtx,
		cancel:   cancel,
		run:      fn,
		done:     make(chan opOutcome, 1),
	}

	s.mu.Lock()
	if t.closed {
		s.mu.Unlock()
		cancel()
		return nil, schema.ErrNoSuchTab
	}
	select {
	case t.ops <- op:
	default:
		s.mu.Unlock()
		cancel()
		s.emitOutcome(op, t, schema.CommandOutcomeError, schema.KindTabBusy)
		return nil, fmt.Errorf("%w: queue full", schema.ErrTabBusy)
	}
	s.mu.Unlock()

	timeout := s.commandTimeout(ctx)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-op.done:
		if outcome.err != nil {
			s.emitOutcome(op, t, schema.CommandOutcomeError, schema.KindOf(outcome.err))
			return nil, outcome.err
		}
		s.emitOutcome(op, t, schema.CommandOutcomeOK, "")
		return outcome.value, nil
	case <-timer.C:
		cancel()
		s.emitOutcome(op, t, schema.CommandOutcomeTimeout, schema.KindTimeout)
		return nil, fmt.Errorf("%w: %s after %s", schema.ErrTimeout, method, timeout)
	case <-ctx.Done():
		cancel()
		s.emitOutcome(op, t, schema.CommandOutcomeError, schema.KindTimeout)
		return nil, ctx.Err()
	}
}

func (s *service) emitOutcome(op *pendingOp, t *tab, outcome schema.CommandOutcome, kind schema.ErrorKind) {
	if s.sink == nil {
		return
	}
	s.emitCommandEvent(schema.CommandEvent{
		CommandID:  op.id,
		Method:     op.method,
		TabID:      t.id,
		Outcome:    outcome,
		ErrorKind:  kind,
		DurationMS: time.Since(op.issuedAt).Milliseconds(),
	})
}

// applyIfLive runs fn under the registry lock unless the operation was
// abandoned or the tab was closed. Adapters settle on their own clock,
// so a timed-out operation must never land its state on the tab.
func (s *service) applyIfLive(ctx context.Context, t *tab, fn func()) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.closed || ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

// errNotFound tags adapter "no such element" style failures.
func errNotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", schema.ErrNotFound, fmt.Sprintf(format, args...))
}
