// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
client.go - Singular.Live Control App API client

Wraps the two control app endpoints this system consumes:

	GET   /controlapps/{token}/model    - document model discovery
	PATCH /controlapps/{token}/control  - state and field value updates

The client never retries; retry policy belongs to callers.
*/

package singular

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/elliottw/singularsync/internal/metrics"
)

// Sentinel errors for the two failure classes callers react to
// differently. Transport problems and non-success statuses are
// ErrUnavailable; a body that cannot be decoded is ErrParse, which usually
// means an API version mismatch rather than a connectivity problem.
var (
	ErrUnavailable = errors.New("singular api unavailable")
	ErrParse       = errors.New("singular response malformed")
)

// Client provides access to the Singular.Live control app API.
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a Singular API client.
//
// apiBase is the API root (e.g. https://app.singular.live/apiv2); a
// trailing slash is stripped.
func NewClient(apiBase string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PatchGroup is one element of a control PATCH body. State drives
// composition in/out transitions; Payload carries field values grouped
// under their owning composition.
type PatchGroup struct {
	SubCompositionID string         `json:"subCompositionId"`
	State            string         `json:"state,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
}

// FetchModel retrieves the full document model for a control app token.
// Exactly one request is issued.
func (c *Client) FetchModel(ctx context.Context, token string) ([]Composition, error) {
	url := fmt.Sprintf("%s/controlapps/%s/model", c.apiBase, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create model request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: model fetch: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model fetch returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var comps []Composition
	if err := json.NewDecoder(resp.Body).Decode(&comps); err != nil {
		return nil, fmt.Errorf("%w: model decode: %v", ErrParse, err)
	}

	return comps, nil
}

// Patch sends a control PATCH for a token. Groups must already be grouped
// by owning composition; see FieldCache.Resolve.
func (c *Client) Patch(ctx context.Context, token string, groups []PatchGroup) error {
	url := fmt.Sprintf("%s/controlapps/%s/control", c.apiBase, token)

	body, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to encode patch body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create patch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PatchRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: control patch: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PatchRequests.WithLabelValues("error").Inc()
		// Read a little of the body for the error message; Singular
		// returns structured errors for bad field ids.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: control patch returned status %d: %s", ErrUnavailable, resp.StatusCode, string(snippet))
	}

	metrics.PatchRequests.WithLabelValues("ok").Inc()
	return nil
}
