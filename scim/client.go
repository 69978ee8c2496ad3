package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds each remote call when the caller does not
// supply its own HTTP client.
const DefaultTimeout = 15 * time.Second

// Client talks to a remote SCIM 2.0 Users endpoint. Every call carries
// the bearer token and is bounded by the HTTP client's timeout.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	// IsConflict decides whether a create response means the resource
	// already exists. Remote services disagree on the status code for
	// this, so it is a configuration point; nil means 409.
	IsConflict func(status int) bool
}

// NewClient returns a Client for the endpoint rooted at baseURL with a
// per-call timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) conflict(status int) bool {
	if c.IsConflict != nil {
		return c.IsConflict(status)
	}
	return status == http.StatusConflict
}

// CreateUser POSTs the resource to {base}/Users and returns the
// response status. Non-2xx statuses are returned to the caller for
// interpretation, not turned into errors; only transport failures are.
func (c *Client) CreateUser(ctx context.Context, user User) (int, error) {
	resp, err := c.do(ctx, http.MethodPost, "/Users", user)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return resp.StatusCode, nil
}

// ListUsers GETs {base}/Users. The listing doubles as the conflict
// resolution search, since not every remote implements /Users/.search.
func (c *Client) ListUsers(ctx context.Context) (*ListResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/Users", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("user listing failed with status %d", resp.StatusCode)
	}

	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "decoding user listing")
	}
	return &list, nil
}

// ReplaceUser PUTs a full replacement of the remote resource id.
func (c *Client) ReplaceUser(ctx context.Context, id string, user User) error {
	resp, err := c.do(ctx, http.MethodPut, "/Users/"+id, user)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("update failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return resp, nil
}
