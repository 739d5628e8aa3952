package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pkt.systems/quarterdeck/schema"
)

func assistantStub(t *testing.T, name string, wantToken string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantToken != "" && r.Header.Get("Authorization") != "Bearer "+wantToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(wireResponse{Response: name + " got " + req.Message})
	}))
	t.Cleanup(server.Close)
	return server
}

func twoBackendClient(t *testing.T) *Client {
	t.Helper()
	first := assistantStub(t, "Port", "")
	second := assistantStub(t, "Starboard", "")
	return New(Config{Backends: []BackendConfig{
		{Name: "Port", URL: first.URL},
		{Name: "Starboard", URL: second.URL},
	}}, nil)
}

func TestSendByName(t *testing.T) {
	c := twoBackendClient(t)
	response, err := c.Send(context.Background(), "starboard", "ping")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if response != "Starboard got ping" {
		t.Fatalf("unexpected response %q", response)
	}
}

func TestSendByOrdinal(t *testing.T) {
	c := twoBackendClient(t)
	response, err := c.Send(context.Background(), "1", "ping")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if response != "Port got ping" {
		t.Fatalf("unexpected response %q", response)
	}
}

func TestSendFansOutToAll(t *testing.T) {
	c := twoBackendClient(t)
	for _, selector := range []string{"", "all", "both"} {
		response, err := c.Send(context.Background(), selector, "ahoy")
		if err != nil {
			t.Fatalf("send %q: %v", selector, err)
		}
		want := "Port: Port got ahoy\nStarboard: Starboard got ahoy"
		if response != want {
			t.Fatalf("selector %q: got %q, want %q", selector, response, want)
		}
	}
}

func TestSendUnknownSelector(t *testing.T) {
	c := twoBackendClient(t)
	_, err := c.Send(context.Background(), "amidships", "ping")
	if !errors.Is(err, schema.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	_, err = c.Send(context.Background(), "3", "ping")
	if !errors.Is(err, schema.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for out of range ordinal, got %v", err)
	}
}

func TestSendNoBackends(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.Send(context.Background(), "", "ping")
	if !errors.Is(err, schema.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestSendBearerToken(t *testing.T) {
	server := assistantStub(t, "Locked", "hunter2")
	c := New(Config{Backends: []BackendConfig{{Name: "Locked", URL: server.URL, Token: "hunter2"}}}, nil)
	response, err := c.Send(context.Background(), "locked", "open up")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if response != "Locked got open up" {
		t.Fatalf("unexpected response %q", response)
	}

	bare := New(Config{Backends: []BackendConfig{{Name: "Locked", URL: server.URL}}}, nil)
	if _, err := bare.Send(context.Background(), "locked", "open up"); !errors.Is(err, schema.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable on 401, got %v", err)
	}
}

func TestSendBackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	c := New(Config{Backends: []BackendConfig{{Name: "Flaky", URL: server.URL}}}, nil)
	_, err := c.Send(context.Background(), "flaky", "ping")
	if !errors.Is(err, schema.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}
