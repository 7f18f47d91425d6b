package intercept

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned by Client.FetchJSON for a response with a status of 400 or more.
type StatusError struct {
	Target string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s returned HTTP status %d", e.Target, e.Status)
}

// Client is a convenience layer over an Interceptor for application code that wants decoded
// data rather than raw responses.
type Client struct {
	interceptor *Interceptor
}

func NewClient(i *Interceptor) *Client {
	return &Client{interceptor: i}
}

// Fetch issues the call and returns the response body, failing on an error status.
func (c *Client) Fetch(ctx context.Context, target string, opts *FetchOptions) ([]byte, error) {
	resp, err := c.interceptor.Fetch(ctx, target, opts)
	if err != nil {
		return nil, err
	}
	var body []byte
	if resp.Body != nil {
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Target: target, Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

// FetchJSON issues a GET for target and decodes the JSON response body into out.
func (c *Client) FetchJSON(ctx context.Context, target string, out interface{}) error {
	body, err := c.Fetch(ctx, target, &FetchOptions{
		Headers: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed JSON response from %s: %w", target, err)
	}
	return nil
}
