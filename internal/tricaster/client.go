// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
client.go - TriCaster switcher HTTP client

The TriCaster exposes two HTTP surfaces this system consumes:

	GET  /v1/dictionary?key={key}  - status documents as XML (timecodes, tally, ...)
	POST /v1/shortcut              - command execution via a small XML body

The device terminates connections aggressively and serves plain HTTP only,
so every request carries Connection: close and a short timeout. The client
never retries; the circuit breaker wrapper owns failure policy.
*/

package tricaster

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elliottw/singularsync/internal/config"
)

// Sentinel errors. ErrNotConfigured means the module is disabled or has no
// host; ErrUnavailable covers transport failures and non-success statuses;
// ErrParse covers undecodable XML; ErrSlotNotFound means every status
// document shape was tried and none carried the requested slot.
var (
	ErrNotConfigured = errors.New("tricaster not configured")
	ErrUnavailable   = errors.New("tricaster unavailable")
	ErrParse         = errors.New("tricaster response malformed")
	ErrSlotNotFound  = errors.New("ddr slot not found in status data")
)

// dictionaryKeys are the status document keys tried in order when looking
// up DDR durations. Older firmware serves "timecode" only.
var dictionaryKeys = [2]string{"ddr_timecode", "timecode"}

// SlotCount is the number of DDR slots a TriCaster exposes.
const SlotCount = 4

// Client provides access to a TriCaster's HTTP API. Connection settings
// can be swapped at runtime when the operator reconfigures the device, so
// reads go through the mutex.
type Client struct {
	mu      sync.RWMutex
	enabled bool
	host    string
	user    string
	pass    string

	httpClient *http.Client
}

// NewClient creates a TriCaster client from device settings.
func NewClient(cfg config.TriCasterConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Client{
		enabled: cfg.Enabled,
		host:    cfg.Host,
		user:    cfg.Username,
		pass:    cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UpdateConfig swaps the connection settings. In-flight requests finish
// against the old settings.
func (c *Client) UpdateConfig(cfg config.TriCasterConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = cfg.Enabled
	c.host = cfg.Host
	c.user = cfg.Username
	c.pass = cfg.Password
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
}

// Configured reports whether requests can be attempted at all.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled && c.host != ""
}

// Host returns the configured device host, empty when unset.
func (c *Client) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

// request performs one HTTP exchange with the device and returns the
// response body. body is a raw XML document for POSTs, nil for GETs.
func (c *Client) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	c.mu.RLock()
	enabled, host, user, pass := c.enabled, c.host, c.user, c.pass
	c.mu.RUnlock()

	if !enabled {
		return nil, fmt.Errorf("%w: module disabled", ErrNotConfigured)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: no host set", ErrNotConfigured)
	}

	url := "http://" + host + path

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create tricaster request: %w", err)
	}

	req.Header.Set("Connection", "close")
	req.Header.Set("Accept", "application/xml")
	if method == http.MethodPost && body != nil {
		req.Header.Set("Content-Type", "text/xml")
	}
	if user != "" && pass != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, method, path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrUnavailable, path, err)
	}
	return data, nil
}

// Dictionary fetches one raw status document by key.
func (c *Client) Dictionary(ctx context.Context, key string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, "/v1/dictionary?key="+key, nil)
}

// Shortcut executes a named device command with optional key/value
// parameters.
func (c *Client) Shortcut(ctx context.Context, name string, params map[string]string) error {
	var buf bytes.Buffer
	buf.WriteString("<shortcut name=\"")
	_ = xml.EscapeText(&buf, []byte(name))
	buf.WriteString("\">")
	for key, value := range params {
		buf.WriteString("<entry key=\"")
		_ = xml.EscapeText(&buf, []byte(key))
		buf.WriteString("\" value=\"")
		_ = xml.EscapeText(&buf, []byte(value))
		buf.WriteString("\"/>")
	}
	buf.WriteString("</shortcut>")

	_, err := c.request(ctx, http.MethodPost, "/v1/shortcut", buf.Bytes())
	return err
}

// Version fetches the device's version string, used by the connection test
// endpoint. The response is free-form text; it is trimmed and truncated to
// keep status payloads small.
func (c *Client) Version(ctx context.Context) (string, error) {
	data, err := c.request(ctx, http.MethodGet, "/v1/version", nil)
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(data))
	if len(version) > 200 {
		version = version[:200]
	}
	return version, nil
}

// SlotDuration looks up the clip duration for one DDR slot, trying each
// known dictionary key in order. A document that parses but lacks the slot
// moves on to the next key; ErrSlotNotFound is returned only after every
// key produced a readable document without the slot. When no key could be
// fetched at all, the last transport error wins so callers see the device
// outage rather than a misleading not-found.
func (c *Client) SlotDuration(ctx context.Context, slot int) (SlotDuration, error) {
	var lastErr error
	sawDocument := false

	for _, key := range dictionaryKeys {
		data, err := c.Dictionary(ctx, key)
		if err != nil {
			lastErr = err
			continue
		}
		sawDocument = true

		d, err := ExtractSlotDuration(data, slot)
		if err != nil {
			lastErr = err
			continue
		}
		return d, nil
	}

	if !sawDocument && lastErr != nil {
		return SlotDuration{}, lastErr
	}
	return SlotDuration{}, fmt.Errorf("%w: ddr%d", ErrSlotNotFound, slot)
}

// DDRInfo reports the status of every DDR slot present in the primary
// status document. Slots absent from the document are absent from the map.
func (c *Client) DDRInfo(ctx context.Context) (map[int]SlotStatus, error) {
	data, err := c.Dictionary(ctx, dictionaryKeys[0])
	if err != nil {
		return nil, err
	}
	return ParseSlotStatuses(data)
}

// Tally reports which inputs are on program and preview.
func (c *Client) Tally(ctx context.Context) (*TallyStatus, error) {
	data, err := c.Dictionary(ctx, "tally")
	if err != nil {
		return nil, err
	}
	return ParseTally(data)
}
