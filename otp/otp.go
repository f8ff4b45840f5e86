// Package otp is the HTTP client for the external one-time code
// service. The service owns code generation, storage, expiry, and
// attempt limits; this client only relays the phone number and the
// candidate code and trusts the verdict.
package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-errors"
)

// Client talks to the one-time code service. With DryRun set (or no
// API key) Request logs instead of calling out and Verify accepts the
// fixed code "000000", which is what local development runs on.
type Client struct {
	BaseURL string
	APIKey  string
	DryRun  bool

	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDryRun toggles dry-run mode.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) { c.DryRun = dryRun }
}

// NewClient creates a new Client instance
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

type requestPayload struct {
	Phone string `json:"phone"`
}

type requestResponse struct {
	RequestID string `json:"request_id"`
}

type verifyPayload struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Request implements auth.OneTimeCodeService. It asks the service to
// generate and deliver a code to the phone number and returns the
// opaque request handle.
func (c *Client) Request(ctx context.Context, phone string) (string, error) {
	if c.dryRun() {
		fmt.Printf("[OTP][dry-run] requested code for %s\n", phone)
		return "dry-run", nil
	}

	var out requestResponse
	if err := c.post(ctx, "/v1/otp/request", requestPayload{Phone: phone}, &out); err != nil {
		return "", err
	}

	return out.RequestID, nil
}

// Verify implements auth.OneTimeCodeService. A wrong or expired code is
// a false verdict, not an error; errors mean the service itself failed.
func (c *Client) Verify(ctx context.Context, phone, code string) (bool, error) {
	if c.dryRun() {
		return code == "000000", nil
	}

	var out verifyResponse
	if err := c.post(ctx, "/v1/otp/verify", verifyPayload{Phone: phone, Code: code}, &out); err != nil {
		return false, err
	}

	return out.Valid, nil
}

func (c *Client) dryRun() bool {
	return c.DryRun || c.APIKey == "" || c.APIKey == "dry-run"
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode OTP request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build OTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "OTP service request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to read OTP service response")
	}

	if resp.StatusCode != http.StatusOK {
		return errors.New(fmt.Sprintf("OTP service returned status %d", resp.StatusCode), errors.CategoryOperation)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to parse OTP service response")
	}

	return nil
}
