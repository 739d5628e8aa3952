// Package chat bridges chat tabs to assistant backends over HTTP. A
// backend is any endpoint accepting a JSON message and answering with a
// JSON response body.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/schema"
)

// BackendConfig describes one assistant endpoint.
type BackendConfig struct {
	// Name identifies the backend in selectors and transcripts.
	Name string `mapstructure:"name" yaml:"name"`
	// URL is the POST endpoint.
	URL string `mapstructure:"url" yaml:"url"`
	// Token is sent as a bearer token when set.
	Token string `mapstructure:"token" yaml:"token"`
}

// Config lists the assistant backends in selection order.
type Config struct {
	Backends []BackendConfig `mapstructure:"backends" yaml:"backends"`
	// Timeout bounds one backend round trip.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Client implements the dispatcher's assistant backend.
type Client struct {
	backends []BackendConfig
	http     *http.Client
	log      pslog.Logger
}

var _ core.Assistant = (*Client)(nil)

// New constructs a Client.
func New(cfg Config, logger pslog.Logger) *Client {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		backends: cfg.Backends,
		http:     &http.Client{Timeout: timeout},
		log:      logger,
	}
}

type wireRequest struct {
	Message string `json:"message"`
}

type wireResponse struct {
	Response string `json:"response"`
}

// Send routes a message to the selected backend. A selector is a
// backend name, a 1-based ordinal, or empty/"all"/"both" to fan out to
// every backend.
func (c *Client) Send(ctx context.Context, selector, message string) (string, error) {
	targets, err := c.resolve(selector)
	if err != nil {
		return "", err
	}
	if len(targets) == 1 {
		return c.sendOne(ctx, targets[0], message)
	}
	var out strings.Builder
	for i, backend := range targets {
		response, err := c.sendOne(ctx, backend, message)
		if err != nil {
			return "", fmt.Errorf("%s: %w", backend.Name, err)
		}
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "%s: %s", backend.Name, response)
	}
	return out.String(), nil
}

func (c *Client) resolve(selector string) ([]BackendConfig, error) {
	if len(c.backends) == 0 {
		return nil, fmt.Errorf("%w: no assistant backends configured", schema.ErrBackendUnavailable)
	}
	normalized := strings.ToLower(strings.TrimSpace(selector))
	switch normalized {
	case "", "all", "both":
		return c.backends, nil
	}
	if ordinal, err := strconv.Atoi(normalized); err == nil {
		if ordinal < 1 || ordinal > len(c.backends) {
			return nil, fmt.Errorf("%w: assistant %d of %d", schema.ErrInvalidArgument, ordinal, len(c.backends))
		}
		return c.backends[ordinal-1 : ordinal], nil
	}
	for _, backend := range c.backends {
		if strings.EqualFold(backend.Name, normalized) {
			return []BackendConfig{backend}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown assistant %q", schema.ErrInvalidArgument, selector)
}

func (c *Client) sendOne(ctx context.Context, backend BackendConfig, message string) (string, error) {
	body, err := json.Marshal(wireRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backend.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if backend.Token != "" {
		req.Header.Set("Authorization", "Bearer "+backend.Token)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %s returned %s", schema.ErrBackendUnavailable, backend.Name, resp.Status)
	}
	var decoded wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode %s response: %v", schema.ErrBackendUnavailable, backend.Name, err)
	}
	c.log.Debug("assistant responded", "backend", backend.Name, "elapsed_ms", time.Since(start).Milliseconds())
	return decoded.Response, nil
}
