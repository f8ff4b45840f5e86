package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
)

// DefaultSMSAPIURL is the gateway endpoint for one-off messages.
const DefaultSMSAPIURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

// SendSMSResponse is the gateway's reply envelope. Code 0 is success.
type SendSMSResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// SMS delivers links as text messages through an HTTP gateway. With
// DryRun set (or no API key) it logs instead of calling out, which is
// what local development runs on.
type SMS struct {
	APIKey string
	Sender string
	APIURL string
	DryRun bool

	httpClient *http.Client
}

// SMSOption configures the SMS notifier.
type SMSOption func(*SMS)

// WithSMSHTTPClient overrides the HTTP client, mainly for tests.
func WithSMSHTTPClient(client *http.Client) SMSOption {
	return func(s *SMS) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithSMSAPIURL overrides the gateway endpoint.
func WithSMSAPIURL(apiURL string) SMSOption {
	return func(s *SMS) {
		if apiURL != "" {
			s.APIURL = apiURL
		}
	}
}

// WithSMSSender sets the sender ID attached to outgoing messages.
func WithSMSSender(sender string) SMSOption {
	return func(s *SMS) { s.Sender = sender }
}

// WithSMSDryRun toggles dry-run mode.
func WithSMSDryRun(dryRun bool) SMSOption {
	return func(s *SMS) { s.DryRun = dryRun }
}

// NewSMS creates an SMS notifier.
func NewSMS(apiKey string, opts ...SMSOption) *SMS {
	s := &SMS{
		APIKey:     apiKey,
		APIURL:     DefaultSMSAPIURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// SendVerificationLink implements auth.Notifier.
func (s *SMS) SendVerificationLink(ctx context.Context, destination, link, label string) error {
	text := fmt.Sprintf("%s: %s", label, link)

	if s.DryRun || s.APIKey == "" || s.APIKey == "dry-run" {
		fmt.Printf("[SMS][dry-run] to=%s sender=%q text=%q\n", destination, s.Sender, text)
		return nil
	}

	form := url.Values{
		"apiKey":    {s.APIKey},
		"recipient": {destination},
		"text":      {text},
	}
	if s.Sender != "" {
		form.Set("from", s.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build SMS request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "SMS gateway request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to read SMS gateway response")
	}

	var result SendSMSResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to parse SMS gateway response")
	}

	if result.Code != 0 {
		return errors.New(fmt.Sprintf("SMS gateway returned error code %d", result.Code), errors.CategoryOperation)
	}

	return nil
}
