package webengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/schema"
)

// page drives one Chrome tab. The dispatcher serializes calls per tab,
// so page needs no locking of its own.
type page struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    pslog.Logger
}

var _ core.PageEngine = (*page)(nil)

func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *page) Back(ctx context.Context) error {
	return p.run(ctx, chromedp.NavigateBack())
}

func (p *page) Forward(ctx context.Context) error {
	return p.run(ctx, chromedp.NavigateForward())
}

func (p *page) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

func (p *page) Info(ctx context.Context) (schema.PageInfo, error) {
	var raw struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		ReadyState string `json:"readyState"`
	}
	if err := p.run(ctx, chromedp.Evaluate(pageInfoScript, &raw)); err != nil {
		return schema.PageInfo{}, err
	}
	state := schema.LoadStateLoading
	if raw.ReadyState == "complete" {
		state = schema.LoadStateComplete
	}
	return schema.PageInfo{URL: raw.URL, Title: raw.Title, LoadState: state}, nil
}

func (p *page) Elements(ctx context.Context) ([]schema.Element, error) {
	var raw []struct {
		ID         string            `json:"id"`
		Tag        string            `json:"tag"`
		Text       string            `json:"text"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := p.run(ctx, chromedp.Evaluate(listElementsScript, &raw)); err != nil {
		return nil, err
	}
	elements := make([]schema.Element, 0, len(raw))
	for i, entry := range raw {
		id := entry.ID
		if id == "" {
			// positional handle, stable until the next page mutation
			id = fmt.Sprintf("el-%d", i)
		}
		elements = append(elements, schema.Element{
			ID:         id,
			Tag:        entry.Tag,
			Text:       entry.Text,
			Attributes: entry.Attributes,
		})
	}
	return elements, nil
}

func (p *page) Click(ctx context.Context, target core.ElementTarget) (bool, error) {
	script, err := clickScript(target)
	if err != nil {
		return false, err
	}
	var hit bool
	if err := p.run(ctx, chromedp.Evaluate(script, &hit)); err != nil {
		return false, err
	}
	return hit, nil
}

func (p *page) Fill(ctx context.Context, text string, target core.ElementTarget) (bool, error) {
	script, err := fillScript(text, target)
	if err != nil {
		return false, err
	}
	var hit bool
	if err := p.run(ctx, chromedp.Evaluate(script, &hit)); err != nil {
		return false, err
	}
	return hit, nil
}

func (p *page) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := p.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, err
	}
	return raw, nil
}

func (p *page) Close() error {
	p.cancel()
	return nil
}

// run executes actions on the tab while honoring the caller's deadline.
// A canceled caller abandons the action; the tab stays usable for the
// next operation.
func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(p.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
