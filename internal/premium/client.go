// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package premium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultBaseURL is the public profile API endpoint.
const DefaultBaseURL = "https://api.mojang.com"

// defaultTimeout bounds a single lookup so a slow upstream cannot hang a
// connecting player's task.
const defaultTimeout = 5 * time.Second

// Client resolves usernames via the HTTP profile API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTP creates a Client with a caller-supplied http.Client
// (for testing).
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, http: httpClient}
}

// profileResponse is the upstream wire format. The ID is an undashed UUID.
type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LookupName resolves a username to its premium profile.
// Returns (nil, nil) when no premium account holds the name.
func (c *Client) LookupName(ctx context.Context, username string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/users/profiles/minecraft/%s", c.baseURL, url.PathEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oops.Code("PREMIUM_REQUEST_FAILED").
			With("operation", "build lookup request").
			With("username", username).
			Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Fault{Kind: FaultOther, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()                 //nolint:errcheck // nothing to do on close failure
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	case http.StatusTooManyRequests:
		return nil, &Fault{Kind: FaultThrottled, Status: resp.StatusCode}
	default:
		return nil, &Fault{Kind: FaultOther, Status: resp.StatusCode}
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Fault{Kind: FaultOther, Err: err}
	}

	// uuid.Parse accepts the upstream's undashed form.
	id, err := uuid.Parse(body.ID)
	if err != nil {
		return nil, &Fault{Kind: FaultOther, Err: err}
	}

	return &Profile{ID: id, Name: body.Name}, nil
}

// Compile-time interface check.
var _ Lookup = (*Client)(nil)
