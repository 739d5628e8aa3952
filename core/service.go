package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/internal/logx"
	"pkt.systems/quarterdeck/schema"
)

// service implements the dispatcher core. The registry (tabs, active)
// and every tab's state are mutated only while mu is held; transports
// and backends never touch them directly.
type service struct {
	cfg       schema.ServiceConfig
	pages     PageProvider
	shell     Shell
	assistant Assistant
	sink      EventSink
	logger    pslog.Logger

	mu     sync.Mutex
	tabs   []*tab
	active int
	nextID schema.TabID

	nextCmd atomic.Uint64
}

// NewService constructs the dispatcher core.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:       normalized,
		pages:     deps.Pages,
		shell:     deps.Shell,
		assistant: deps.Assistant,
		sink:      deps.EventSink,
		logger:    logger,
		active:    schema.NoActiveTab,
		nextID:    1,
	}, nil
}

func (s *service) Status(ctx context.Context) (schema.StatusResult, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.StatusResult{TabCount: len(s.tabs), ActiveIndex: s.active}, nil
}

func (s *service) ListTabs(ctx context.Context) (schema.ListTabsResult, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots := make([]schema.TabSnapshot, 0, len(s.tabs))
	for i, t := range s.tabs {
		snapshots = append(snapshots, t.snapshot(i, i == s.active))
	}
	return schema.ListTabsResult{Tabs: snapshots}, nil
}

func (s *service) CreateTab(ctx context.Context, args schema.CreateTabArgs) (schema.CreateTabResult, error) {
	if ctx == nil {
		return schema.CreateTabResult{}, errors.New("missing context")
	}
	if !args.Kind.Valid() {
		return schema.CreateTabResult{}, fmt.Errorf("%w: unknown tab kind %q", schema.ErrInvalidArgument, args.Kind)
	}
	log := logx.Ctx(ctx).With("kind", args.Kind)
	log.Info("service tab create start")

	var page PageEngine
	if args.Kind == schema.TabKindBrowser {
		if s.pages == nil {
			return schema.CreateTabResult{}, fmt.Errorf("%w: no page engine configured", schema.ErrBackendUnavailable)
		}
		created, err := s.pages.NewPage(ctx)
		if err != nil {
			log.Warn("service tab create failed", "err", err)
			return schema.CreateTabResult{}, fmt.Errorf("%w: %v", schema.ErrBackendUnavailable, err)
		}
		page = created
	}

	s.mu.Lock()
	t := newTab(s.nextID, args.Kind, s.cfg.QueueDepth)
	s.nextID++
	switch args.Kind {
	case schema.TabKindBrowser:
		t.page = page
	case schema.TabKindTerminal:
		t.cwd = defaultWorkingDir()
	}
	s.tabs = append(s.tabs, t)
	index := len(s.tabs) - 1
	if s.active == schema.NoActiveTab {
		s.active = index
	}
	event := schema.TabEvent{
		Type:        schema.TabEventCreated,
		Tab:         t.snapshot(index, index == s.active),
		ActiveIndex: s.active,
	}
	s.mu.Unlock()
	go t.worker(s.logger.With("tab", t.id))
	s.emitTabEvent(event)
	log = logx.WithTab(log, t.id)
	log.Info("service tab created", "index", index)

	if args.Kind == schema.TabKindBrowser {
		if url := firstNonEmpty(args.URL, s.cfg.StartURL); url != "" && url != schema.DefaultStartURL {
			s.startNavigate(t, url, log)
		}
	}
	return schema.CreateTabResult{Index: index}, nil
}

func (s *service) CloseTab(ctx context.Context, index int) error {
	_ = ctx
	s.mu.Lock()
	if index < 0 || index >= len(s.tabs) {
		s.mu.Unlock()
		return fmt.Errorf("%w: index %d", schema.ErrNoSuchTab, index)
	}
	t := s.tabs[index]
	t.closed = true
	page := t.page
	s.tabs = append(s.tabs[:index], s.tabs[index+1:]...)
	switch {
	case len(s.tabs) == 0:
		s.active = schema.NoActiveTab
	case index < s.active:
		s.active--
	case index == s.active && s.active >= len(s.tabs):
		s.active = len(s.tabs) - 1
	}
	// quit is closed under mu so every enqueue that saw closed==false
	// has already landed in the ops channel for the worker to drain
	close(t.quit)
	event := schema.TabEvent{
		Type:        schema.TabEventClosed,
		Tab:         t.snapshot(index, false),
		ActiveIndex: s.active,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	log := s.logger.With("tab", t.id)
	if page != nil {
		go func() {
			<-t.drained
			if err := page.Close(); err != nil {
				log.Warn("service page close failed", "err", err)
			}
		}()
	}
	log.Info("service tab closed", "index", index)
	return nil
}

func (s *service) SwitchTab(ctx context.Context, index int) error {
	_ = ctx
	s.mu.Lock()
	if index < 0 || index >= len(s.tabs) {
		s.mu.Unlock()
		return fmt.Errorf("%w: index %d", schema.ErrNoSuchTab, index)
	}
	s.active = index
	t := s.tabs[index]
	event := schema.TabEvent{
		Type:        schema.TabEventActivated,
		Tab:         t.snapshot(index, true),
		ActiveIndex: index,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	s.logger.With("tab", t.id).Info("service tab activated", "index", index)
	return nil
}

func (s *service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	for _, t := range s.tabs {
		if t.kind == schema.TabKindBrowser {
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()
	_, err := s.CreateTab(ctx, schema.CreateTabArgs{Kind: schema.TabKindBrowser, URL: s.cfg.StartURL})
	return err
}

func (s *service) Close() error {
	for {
		s.mu.Lock()
		count := len(s.tabs)
		s.mu.Unlock()
		if count == 0 {
			return nil
		}
		if err := s.CloseTab(context.Background(), count-1); err != nil {
			return err
		}
	}
}

// resolve maps a target to a tab against the current sequence. Indices
// are positions, so resolution happens at dispatch time, never earlier.
func (s *service) resolve(target Target) (*tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target.Index == nil {
		if s.active == schema.NoActiveTab {
			return nil, schema.ErrNoActiveTab
		}
		return s.tabs[s.active], nil
	}
	index := *target.Index
	if index < 0 || index >= len(s.tabs) {
		return nil, fmt.Errorf("%w: index %d", schema.ErrNoSuchTab, index)
	}
	return s.tabs[index], nil
}

// resolveKind resolves the target and checks its capability variant.
func (s *service) resolveKind(target Target, kind schema.TabKind) (*tab, error) {
	t, err := s.resolve(target)
	if err != nil {
		return nil, err
	}
	if t.kind != kind {
		return nil, fmt.Errorf("%w: %s operation on %s tab", schema.ErrWrongKind, kind, t.kind)
	}
	return t, nil
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}

func (s *service) emitCommandEvent(event schema.CommandEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnCommandEvent(event)
}

// indexOf reports the current position of a tab. Caller holds mu.
func (s *service) indexOfLocked(t *tab) int {
	for i, candidate := range s.tabs {
		if candidate == t {
			return i
		}
	}
	return -1
}

// emitUpdated publishes an updated snapshot for a still-open tab.
func (s *service) emitUpdated(t *tab) {
	s.mu.Lock()
	index := s.indexOfLocked(t)
	if index < 0 {
		s.mu.Unlock()
		return
	}
	event := schema.TabEvent{
		Type:        schema.TabEventUpdated,
		Tab:         t.snapshot(index, index == s.active),
		ActiveIndex: s.active,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
}

func defaultWorkingDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
