package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/schema"
)

func (s *service) GetPageInfo(ctx context.Context, target Target) (schema.PageInfo, error) {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return schema.PageInfo{}, err
	}
	value, err := s.run(ctx, t, schema.MethodGetPageInfo, func(opCtx context.Context) (any, error) {
		info, err := t.page.Info(opCtx)
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		s.applyIfLive(opCtx, t, func() {
			t.url = info.URL
			t.title = info.Title
			t.loadState = info.LoadState
		})
		return info, nil
	})
	if err != nil {
		return schema.PageInfo{}, err
	}
	return value.(schema.PageInfo), nil
}

func (s *service) Navigate(ctx context.Context, target Target, rawURL string) error {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return err
	}
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return err
	}
	_, err = s.run(ctx, t, schema.MethodNavigate, s.navigateOp(t, normalized))
	return err
}

// navigateOp builds the queued navigation closure shared by navigate
// and the initial load of a freshly created browser tab.
func (s *service) navigateOp(t *tab, url string) func(ctx context.Context) (any, error) {
	return func(opCtx context.Context) (any, error) {
		s.applyIfLive(opCtx, t, func() {
			t.url = url
			t.loadState = schema.LoadStateLoading
		})
		s.emitUpdated(t)
		if err := t.page.Navigate(opCtx, url); err != nil {
			s.applyIfLive(opCtx, t, func() { t.loadState = schema.LoadStateFailed })
			s.emitUpdated(t)
			return nil, classifyBackendErr(err)
		}
		s.refreshPageState(opCtx, t)
		return nil, nil
	}
}

func (s *service) startNavigate(t *tab, rawURL string, log pslog.Logger) {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		log.Warn("service start url rejected", "url", rawURL, "err", err)
		return
	}
	go func() {
		if _, err := s.run(context.Background(), t, schema.MethodNavigate, s.navigateOp(t, normalized)); err != nil {
			log.Warn("service start navigation failed", "url", normalized, "err", err)
		}
	}()
}

func (s *service) ClickElement(ctx context.Context, target Target, args schema.ClickArgs) error {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return err
	}
	set := 0
	if args.Selector != "" {
		set++
	}
	if args.ElementID != "" {
		set++
	}
	if args.Position != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: click needs exactly one of selector, element_id, position", schema.ErrInvalidArgument)
	}
	_, err = s.run(ctx, t, schema.MethodClickElement, func(opCtx context.Context) (any, error) {
		hit, err := t.page.Click(opCtx, ElementTarget{
			Selector:  args.Selector,
			ElementID: args.ElementID,
			Position:  args.Position,
		})
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		if !hit {
			return nil, errNotFound("no element matched click target")
		}
		s.refreshPageState(opCtx, t)
		return nil, nil
	})
	return err
}

func (s *service) FillInput(ctx context.Context, target Target, args schema.FillArgs) error {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return err
	}
	if (args.Selector == "") == (args.ElementID == "") {
		return fmt.Errorf("%w: fill needs exactly one of selector, element_id", schema.ErrInvalidArgument)
	}
	_, err = s.run(ctx, t, schema.MethodFillInput, func(opCtx context.Context) (any, error) {
		hit, err := t.page.Fill(opCtx, args.Text, ElementTarget{
			Selector:  args.Selector,
			ElementID: args.ElementID,
		})
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		if !hit {
			return nil, errNotFound("no input matched fill target")
		}
		return nil, nil
	})
	return err
}

func (s *service) GoBack(ctx context.Context, target Target) error {
	return s.historyOp(ctx, target, schema.MethodGoBack, PageEngine.Back)
}

func (s *service) GoForward(ctx context.Context, target Target) error {
	return s.historyOp(ctx, target, schema.MethodGoForward, PageEngine.Forward)
}

func (s *service) Refresh(ctx context.Context, target Target) error {
	return s.historyOp(ctx, target, schema.MethodRefresh, PageEngine.Reload)
}

func (s *service) historyOp(ctx context.Context, target Target, method schema.Method, move func(PageEngine, context.Context) error) error {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return err
	}
	_, err = s.run(ctx, t, method, func(opCtx context.Context) (any, error) {
		if err := move(t.page, opCtx); err != nil {
			return nil, classifyBackendErr(err)
		}
		s.refreshPageState(opCtx, t)
		return nil, nil
	})
	return err
}

func (s *service) ListElements(ctx context.Context, target Target) (schema.ListElementsResult, error) {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return schema.ListElementsResult{}, err
	}
	value, err := s.run(ctx, t, schema.MethodListElements, func(opCtx context.Context) (any, error) {
		elements, err := t.page.Elements(opCtx)
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		return schema.ListElementsResult{Elements: elements}, nil
	})
	if err != nil {
		return schema.ListElementsResult{}, err
	}
	return value.(schema.ListElementsResult), nil
}

func (s *service) ExecuteScript(ctx context.Context, target Target, script string) (schema.ExecuteScriptResult, error) {
	t, err := s.resolveKind(target, schema.TabKindBrowser)
	if err != nil {
		return schema.ExecuteScriptResult{}, err
	}
	if strings.TrimSpace(script) == "" {
		return schema.ExecuteScriptResult{}, fmt.Errorf("%w: empty script", schema.ErrInvalidArgument)
	}
	value, err := s.run(ctx, t, schema.MethodExecuteScript, func(opCtx context.Context) (any, error) {
		raw, err := t.page.Evaluate(opCtx, script)
		if err != nil {
			return nil, classifyBackendErr(err)
		}
		result := schema.ExecuteScriptResult{}
		if len(raw) > 0 {
			result.Value = json.RawMessage(raw)
		}
		return result, nil
	})
	if err != nil {
		return schema.ExecuteScriptResult{}, err
	}
	return value.(schema.ExecuteScriptResult), nil
}

// refreshPageState pulls URL, title, and load state from the page after
// a mutation settled. Failures here degrade the snapshot only.
func (s *service) refreshPageState(opCtx context.Context, t *tab) {
	info, err := t.page.Info(opCtx)
	if err != nil {
		s.applyIfLive(opCtx, t, func() { t.loadState = schema.LoadStateComplete })
		s.emitUpdated(t)
		return
	}
	s.applyIfLive(opCtx, t, func() {
		t.url = info.URL
		t.title = info.Title
		t.loadState = info.LoadState
	})
	s.emitUpdated(t)
}

// classifyBackendErr folds adapter failures into the error taxonomy while
// keeping already classified errors intact.
func classifyBackendErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case schema.KindOf(err) != schema.KindBackendUnavailable:
		return err
	case errors.Is(err, schema.ErrBackendUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", schema.ErrBackendUnavailable, err)
	}
}

// normalizeURL fills in a missing scheme the way a location bar would.
func normalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty url", schema.ErrInvalidArgument)
	}
	if strings.HasPrefix(trimmed, "about:") {
		return trimmed, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrInvalidArgument, err)
	}
	if parsed.Scheme == "" {
		trimmed = "https://" + trimmed
		if _, err := url.Parse(trimmed); err != nil {
			return "", fmt.Errorf("%w: %v", schema.ErrInvalidArgument, err)
		}
	}
	return trimmed, nil
}
