package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"pkt.systems/quarterdeck/schema"
)

// fakePage is a scriptable page engine. Every hook is optional; the
// defaults succeed immediately.
type fakePage struct {
	mu        sync.Mutex
	navigated []string
	backs     int
	forwards  int
	reloads   int
	closed    bool

	info     schema.PageInfo
	elements []schema.Element
	clickHit bool
	fillHit  bool

	navigateFn func(ctx context.Context, url string) error
	infoFn     func(ctx context.Context) (schema.PageInfo, error)
	evaluateFn func(ctx context.Context, script string) (json.RawMessage, error)
}

func newFakePage() *fakePage {
	return &fakePage{
		info:     schema.PageInfo{URL: "about:blank", LoadState: schema.LoadStateComplete},
		clickHit: true,
		fillHit:  true,
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.navigateFn != nil {
		if err := p.navigateFn(ctx, url); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	p.info = schema.PageInfo{URL: url, Title: "page at " + url, LoadState: schema.LoadStateComplete}
	return nil
}

func (p *fakePage) Back(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backs++
	return nil
}

func (p *fakePage) Forward(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forwards++
	return nil
}

func (p *fakePage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
	return nil
}

func (p *fakePage) Info(ctx context.Context) (schema.PageInfo, error) {
	if p.infoFn != nil {
		return p.infoFn(ctx)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info, nil
}

func (p *fakePage) Elements(ctx context.Context) ([]schema.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements, nil
}

func (p *fakePage) Click(ctx context.Context, target ElementTarget) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clickHit, nil
}

func (p *fakePage) Fill(ctx context.Context, text string, target ElementTarget) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fillHit, nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	if p.evaluateFn != nil {
		return p.evaluateFn(ctx, script)
	}
	return json.RawMessage(`null`), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeProvider hands out fake pages and remembers them.
type fakeProvider struct {
	mu    sync.Mutex
	pages []*fakePage
	make  func() *fakePage
}

func (f *fakeProvider) NewPage(ctx context.Context) (PageEngine, error) {
	page := newFakePage()
	if f.make != nil {
		page = f.make()
	}
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return page, nil
}

func (f *fakeProvider) page(t *testing.T, index int) *fakePage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= len(f.pages) {
		t.Fatalf("no page at %d, have %d", index, len(f.pages))
	}
	return f.pages[index]
}

// fakeShell delegates to a handler function.
type fakeShell struct {
	handler func(ctx context.Context, req ShellRequest) (ShellResult, error)
}

func (f *fakeShell) Execute(ctx context.Context, req ShellRequest) (ShellResult, error) {
	if f.handler == nil {
		return ShellResult{Stdout: req.Command + "\n", WorkingDir: req.WorkingDir}, nil
	}
	return f.handler(ctx, req)
}

// fakeAssistant delegates to a handler function.
type fakeAssistant struct {
	handler func(ctx context.Context, selector, message string) (string, error)
}

func (f *fakeAssistant) Send(ctx context.Context, selector, message string) (string, error) {
	if f.handler == nil {
		return "echo: " + message, nil
	}
	return f.handler(ctx, selector, message)
}

// recordingSink captures events for assertions.
type recordingSink struct {
	mu       sync.Mutex
	tabs     []schema.TabEvent
	commands []schema.CommandEvent
}

func (r *recordingSink) OnTabEvent(event schema.TabEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = append(r.tabs, event)
}

func (r *recordingSink) OnCommandEvent(event schema.CommandEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, event)
}

type testService struct {
	Service
	provider  *fakeProvider
	shell     *fakeShell
	assistant *fakeAssistant
	sink      *recordingSink
}

func newTestService(t *testing.T, cfg schema.ServiceConfig) *testService {
	t.Helper()
	provider := &fakeProvider{}
	sh := &fakeShell{}
	assistant := &fakeAssistant{}
	sink := &recordingSink{}
	svc, err := NewService(cfg, ServiceDeps{
		Pages:     provider,
		Shell:     sh,
		Assistant: assistant,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return &testService{Service: svc, provider: provider, shell: sh, assistant: assistant, sink: sink}
}

func mustCreate(t *testing.T, svc Service, kind schema.TabKind) int {
	t.Helper()
	resp, err := svc.CreateTab(context.Background(), schema.CreateTabArgs{Kind: kind})
	if err != nil {
		t.Fatalf("create %s tab: %v", kind, err)
	}
	return resp.Index
}
