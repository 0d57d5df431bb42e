// Package appclient is the embedded app's fetch wrapper. Every response
// from the backend proxy is inspected for the reauthorization signal
// before the caller sees it; when the signal is present the wrapper
// triggers a top-level navigation back into the OAuth flow and hands the
// caller an explicit "aborted" result instead of data.
package appclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Reauthorization signal headers stamped by the backend when a stored
// access token turns out to be invalid mid-request. An ordinary redirect
// cannot escape the embedding iframe, so the server signals and the client
// navigates top-level.
const (
	ReauthorizeHeader    = "X-Shopify-API-Request-Failure-Reauthorize"
	ReauthorizeURLHeader = "X-Shopify-API-Request-Failure-Reauthorize-Url"
)

// DefaultAuthPath is used when the signal carries no URL.
const DefaultAuthPath = "/auth"

// Navigator performs a top-level browser navigation, replacing the
// outermost document to escape the iframe.
type Navigator interface {
	Navigate(url string)
}

// Result is the outcome of a proxied request. Callers must switch on the
// concrete type: Data carries the payload, ReauthorizationRequired means
// the request was aborted and a navigation is in progress.
type Result interface {
	isResult()
}

// Data is a completed response.
type Data struct {
	Status int
	Header http.Header
	Body   []byte
}

// ReauthorizationRequired is the aborted sentinel: no data was returned
// and the browser is navigating to URL to re-run the OAuth flow.
type ReauthorizationRequired struct {
	URL string
}

func (Data) isResult()                    {}
func (ReauthorizationRequired) isResult() {}

// Client wraps an http.Client with the unconditional reauthorization check.
type Client struct {
	httpClient *http.Client
	navigator  Navigator
}

// New creates a client. httpClient may be nil, in which case
// http.DefaultClient is used.
func New(httpClient *http.Client, navigator Navigator) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		navigator:  navigator,
	}
}

// Do performs the request and applies the reauthorization check before any
// caller handling. The check is not opt-in: it runs on every response.
func (c *Client) Do(ctx context.Context, req *http.Request) (Result, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(ReauthorizeHeader) == "1" {
		url := resp.Header.Get(ReauthorizeURLHeader)
		if url == "" {
			url = DefaultAuthPath
		}
		c.navigator.Navigate(url)
		return ReauthorizationRequired{URL: url}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return Data{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}
