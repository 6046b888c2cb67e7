package sms

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	smsIOSVerificationText = "Your Signal verification code: %s\n\nOr tap: sgnl://verify/%s"
	smsVerificationText    = "Your TextSecure verification code: %s"
)

// EmailConfig points at the relay that mails a verification code. The URL
// carries {email} and {code} placeholders.
type EmailConfig struct {
	URL      string
	User     string
	Password string
}

// Sender formats and dispatches verification codes. Twilio and relay
// failures are recorded and discarded: the client retries the whole
// verification flow, so a lost code is not an error here.
type Sender struct {
	twilio     TwilioAPI
	email      EmailConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSender(twilio TwilioAPI, email EmailConfig, logger *slog.Logger) *Sender {
	return &Sender{
		twilio:     twilio,
		email:      email,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "SmsSender"),
	}
}

// DeliverSmsVerification sends the code by SMS.
func (s *Sender) DeliverSmsVerification(ctx context.Context, destination, clientType, verificationCode string) error {
	destination = fixupNumber(destination)

	if err := s.twilio.DeliverSmsVerification(ctx, destination, clientType, verificationCode); err != nil {
		s.logger.Info("Twilio SMS failed", "err", err)
	}
	return nil
}

// DeliverVoxVerification reads the code over a voice call.
func (s *Sender) DeliverVoxVerification(ctx context.Context, destination, verificationCode string) error {
	if err := s.twilio.DeliverVoxVerification(ctx, destination, verificationCode); err != nil {
		s.logger.Info("Twilio Vox failed", "err", err)
	}
	return nil
}

// DeliverEmail asks the relay to mail the code.
func (s *Sender) DeliverEmail(ctx context.Context, destination, verificationCode string) error {
	endpoint := strings.NewReplacer(
		"{email}", url.PathEscape(destination),
		"{code}", url.PathEscape(verificationCode),
	).Replace(s.email.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build email relay request: %w", err)
	}
	req.Header.Set("Authorization", basicAuthHeader(s.email.User, s.email.Password))

	res, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Email sending failed", "err", err)
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		s.logger.Error("Email sending failed", "status", res.StatusCode)
	}
	return nil
}

// fixupNumber rewrites legacy +42 numbers to the +421 mobile format for SMS
// delivery only.
func fixupNumber(destination string) string {
	if strings.HasPrefix(destination, "+42") && !strings.HasPrefix(destination, "+421") {
		return "+421" + destination[3:]
	}
	return destination
}

func basicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
