package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pkt.systems/quarterdeck/schema"
)

func TestSameTabCommandsRunInOrder(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindTerminal)

	var mu sync.Mutex
	var order []string
	release := make(chan struct{})
	svc.shell.handler = func(ctx context.Context, req ShellRequest) (ShellResult, error) {
		if req.Command == "first" {
			<-release
		}
		mu.Lock()
		order = append(order, req.Command)
		mu.Unlock()
		return ShellResult{Stdout: req.Command, WorkingDir: req.WorkingDir}, nil
	}

	var wg sync.WaitGroup
	run := func(command string) {
		defer wg.Done()
		if _, err := svc.ExecuteTerminalCommand(context.Background(), ActiveTab(), command); err != nil {
			t.Errorf("%s: %v", command, err)
		}
	}
	wg.Add(3)
	go run("first")
	time.Sleep(50 * time.Millisecond)
	go run("second")
	time.Sleep(50 * time.Millisecond)
	go run("third")
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(order, ",") != "first,second,third" {
		t.Fatalf("commands ran out of order: %v", order)
	}
}

func TestQueueOverflowIsTabBusy(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{QueueDepth: 1})
	mustCreate(t, svc, schema.TabKindTerminal)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	svc.shell.handler = func(ctx context.Context, req ShellRequest) (ShellResult, error) {
		once.Do(func() { close(started) })
		<-release
		return ShellResult{WorkingDir: req.WorkingDir}, nil
	}
	defer close(release)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.ExecuteTerminalCommand(context.Background(), ActiveTab(), "blocked")
		}()
		if i == 0 {
			<-started
		} else {
			time.Sleep(50 * time.Millisecond)
		}
	}

	// worker busy plus one queued op; the next must be rejected
	_, err := svc.ExecuteTerminalCommand(context.Background(), ActiveTab(), "overflow")
	if !errors.Is(err, schema.ErrTabBusy) {
		t.Fatalf("expected ErrTabBusy, got %v", err)
	}
	wg.Wait()
}

func TestTimeoutAbandonsWithoutDelivery(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{DefaultTimeout: 80 * time.Millisecond})
	mustCreate(t, svc, schema.TabKindBrowser)
	page := svc.provider.page(t, 0)

	release := make(chan struct{})
	var calls atomic.Int32
	page.infoFn = func(ctx context.Context) (schema.PageInfo, error) {
		if calls.Add(1) == 1 {
			<-release
			return schema.PageInfo{URL: "https://stale.example", Title: "stale", LoadState: schema.LoadStateComplete}, nil
		}
		return schema.PageInfo{URL: "https://fresh.example", Title: "fresh", LoadState: schema.LoadStateComplete}, nil
	}

	_, err := svc.GetPageInfo(context.Background(), ActiveTab())
	if !errors.Is(err, schema.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// let the stale adapter settle, then run a fresh command; the
	// abandoned outcome must not surface anywhere
	close(release)

	info, err := svc.GetPageInfo(context.Background(), ActiveTab())
	if err != nil {
		t.Fatalf("fresh page info: %v", err)
	}
	if info.URL != "https://fresh.example" {
		t.Fatalf("stale outcome leaked: %+v", info)
	}

	tabs, _ := svc.ListTabs(context.Background())
	if tabs.Tabs[0].Summary != "fresh" {
		t.Fatalf("stale state landed on the tab: %q", tabs.Tabs[0].Summary)
	}
}

func TestTimeoutOverrideClampedToMax(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{
		DefaultTimeout: 50 * time.Millisecond,
		MaxTimeout:     120 * time.Millisecond,
	})
	mustCreate(t, svc, schema.TabKindBrowser)
	page := svc.provider.page(t, 0)
	release := make(chan struct{})
	defer close(release)
	page.infoFn = func(ctx context.Context) (schema.PageInfo, error) {
		<-release
		return schema.PageInfo{}, nil
	}

	ctx := WithTimeout(context.Background(), time.Hour)
	start := time.Now()
	_, err := svc.GetPageInfo(ctx, ActiveTab())
	elapsed := time.Since(start)
	if !errors.Is(err, schema.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("override was not clamped, waited %s", elapsed)
	}
}

func TestClosedTabFailsQueuedOps(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{DefaultTimeout: 5 * time.Second})
	mustCreate(t, svc, schema.TabKindTerminal)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	svc.shell.handler = func(ctx context.Context, req ShellRequest) (ShellResult, error) {
		once.Do(func() { close(started) })
		<-release
		return ShellResult{WorkingDir: req.WorkingDir}, nil
	}

	errs := make(chan error, 2)
	go func() {
		_, err := svc.ExecuteTerminalCommand(context.Background(), TabAt(0), "busy")
		errs <- err
	}()
	<-started
	go func() {
		_, err := svc.ExecuteTerminalCommand(context.Background(), TabAt(0), "queued")
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)

	if err := svc.CloseTab(context.Background(), 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(release)

	sawNoSuchTab := false
	for i := 0; i < 2; i++ {
		if errors.Is(<-errs, schema.ErrNoSuchTab) {
			sawNoSuchTab = true
		}
	}
	if !sawNoSuchTab {
		t.Fatalf("expected the queued op to fail with ErrNoSuchTab")
	}

	// enqueue after close is rejected outright
	_, err := svc.ExecuteTerminalCommand(context.Background(), TabAt(0), "late")
	if !errors.Is(err, schema.ErrNoSuchTab) && !errors.Is(err, schema.ErrNoActiveTab) {
		t.Fatalf("expected no-such-tab class error, got %v", err)
	}
}

func TestCommandEventsRecordOutcomes(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{DefaultTimeout: 60 * time.Millisecond})
	mustCreate(t, svc, schema.TabKindTerminal)

	if _, err := svc.ExecuteTerminalCommand(context.Background(), ActiveTab(), "ok"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	release := make(chan struct{})
	svc.shell.handler = func(ctx context.Context, req ShellRequest) (ShellResult, error) {
		<-release
		return ShellResult{}, nil
	}
	_, err := svc.ExecuteTerminalCommand(context.Background(), ActiveTab(), "slow")
	close(release)
	if !errors.Is(err, schema.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	svc.sink.mu.Lock()
	defer svc.sink.mu.Unlock()
	if len(svc.sink.commands) < 2 {
		t.Fatalf("expected at least 2 command events, got %d", len(svc.sink.commands))
	}
	first := svc.sink.commands[0]
	if first.Outcome != schema.CommandOutcomeOK || first.Method != schema.MethodExecuteTerminalCommand {
		t.Fatalf("unexpected first command event: %+v", first)
	}
	last := svc.sink.commands[len(svc.sink.commands)-1]
	if last.Outcome != schema.CommandOutcomeTimeout || last.ErrorKind != schema.KindTimeout {
		t.Fatalf("unexpected timeout event: %+v", last)
	}
}
