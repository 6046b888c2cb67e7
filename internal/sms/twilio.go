// Package sms delivers one-time verification codes over SMS, voice calls,
// and an email relay. Provider failures are logged and swallowed; code
// delivery is retried by the requesting client, not by this layer.
package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioConfig holds the REST API credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	Number     string
	// VoxURL is the TwiML endpoint Twilio fetches to read the code aloud.
	VoxURL string
}

// TwilioAPI is the provider boundary, narrowed for mocking.
type TwilioAPI interface {
	DeliverSmsVerification(ctx context.Context, destination, clientType, verificationCode string) error
	DeliverVoxVerification(ctx context.Context, destination, verificationCode string) error
}

// TwilioClient calls the Twilio REST API directly with form-encoded posts.
type TwilioClient struct {
	cfg        TwilioConfig
	baseURL    string
	httpClient *http.Client
}

var _ TwilioAPI = (*TwilioClient)(nil)

func NewTwilioClient(cfg TwilioConfig) *TwilioClient {
	return &TwilioClient{
		cfg:        cfg,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TwilioClient) DeliverSmsVerification(ctx context.Context, destination, clientType, verificationCode string) error {
	body := fmt.Sprintf(smsVerificationText, verificationCode)
	if clientType == "ios" {
		body = fmt.Sprintf(smsIOSVerificationText, verificationCode, verificationCode)
	}

	form := url.Values{
		"To":   {destination},
		"From": {c.cfg.Number},
		"Body": {body},
	}
	return c.post(ctx, "Messages.json", form)
}

func (c *TwilioClient) DeliverVoxVerification(ctx context.Context, destination, verificationCode string) error {
	form := url.Values{
		"To":   {destination},
		"From": {c.cfg.Number},
		"Url":  {c.cfg.VoxURL + "?code=" + url.QueryEscape(verificationCode)},
	}
	return c.post(ctx, "Calls.json", form)
}

func (c *TwilioClient) post(ctx context.Context, resource string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s", c.baseURL, c.cfg.AccountSID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("twilio responded %d for %s", res.StatusCode, resource)
	}
	return nil
}
