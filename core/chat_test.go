package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pkt.systems/quarterdeck/schema"
)

func TestChatMessageRoundTrip(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindChat)

	out, err := svc.SendChatMessage(context.Background(), ActiveTab(), schema.SendChatArgs{Message: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Response != "echo: hello" {
		t.Fatalf("unexpected response %q", out.Response)
	}

	tabs, _ := svc.ListTabs(context.Background())
	if tabs.Tabs[0].Summary != "2 messages" {
		t.Fatalf("expected transcript of 2, got %q", tabs.Tabs[0].Summary)
	}
}

func TestChatBackendFailureKeepsUserMessage(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindChat)
	svc.assistant.handler = func(ctx context.Context, selector, message string) (string, error) {
		return "", fmt.Errorf("%w: backend down", schema.ErrBackendUnavailable)
	}

	_, err := svc.SendChatMessage(context.Background(), ActiveTab(), schema.SendChatArgs{Message: "hello"})
	if !errors.Is(err, schema.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	tabs, _ := svc.ListTabs(context.Background())
	if tabs.Tabs[0].Summary != "1 messages" {
		t.Fatalf("expected the user message retained, got %q", tabs.Tabs[0].Summary)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{})
	mustCreate(t, svc, schema.TabKindChat)
	if _, err := svc.SendChatMessage(context.Background(), ActiveTab(), schema.SendChatArgs{Message: " "}); !errors.Is(err, schema.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestChatTranscriptBounded(t *testing.T) {
	svc := newTestService(t, schema.ServiceConfig{TranscriptMaxMessages: 4})
	mustCreate(t, svc, schema.TabKindChat)
	for i := 0; i < 5; i++ {
		if _, err := svc.SendChatMessage(context.Background(), ActiveTab(), schema.SendChatArgs{Message: fmt.Sprintf("msg %d", i)}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	tabs, _ := svc.ListTabs(context.Background())
	if tabs.Tabs[0].Summary != "4 messages" {
		t.Fatalf("transcript not bounded, got %q", tabs.Tabs[0].Summary)
	}
}
