package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// daemonClient talks to a running levels daemon.
type daemonClient struct {
	addr string
	http *http.Client
}

func newDaemonClient(addr string) *daemonClient {
	return &daemonClient{
		addr: strings.TrimRight(addr, "/"),
		// generation can take a while on slow providers
		http: &http.Client{Timeout: 3 * time.Minute},
	}
}

// apiError is a non-2xx daemon response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func (c *daemonClient) healthy(ctx context.Context) bool {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/health", nil, &out) == nil
}

func (c *daemonClient) generate(ctx context.Context, lvl int, sessionID string, out any) error {
	body := map[string]string{"session_id": sessionID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/lv%d/generate", lvl), body, out)
}

func (c *daemonClient) status(ctx context.Context, sessionID string, out any) error {
	return c.do(ctx, http.MethodGet, "/levels/status?session_id="+url.QueryEscape(sessionID), nil, out)
}

func (c *daemonClient) thresholds(ctx context.Context, out any) error {
	return c.do(ctx, http.MethodGet, "/levels/thresholds", nil, out)
}

func (c *daemonClient) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (run 'levels start' first): %w", c.addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
