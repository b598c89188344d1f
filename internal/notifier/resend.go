package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var _ Mailer = (*ResendMailer)(nil)

// DefaultResendURL is the Resend API base.
const DefaultResendURL = "https://api.resend.com"

// ResendMailer delivers through the Resend HTTP email API.
type ResendMailer struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewResendMailer(baseURL, apiKey, from string, httpClient *http.Client, logger *slog.Logger) *ResendMailer {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	return &ResendMailer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: httpClient,
		logger:     logger,
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send posts the email, retrying once when rate limited.
func (m *ResendMailer) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(resendPayload{From: m.from, To: []string{e.To}, Subject: e.Subject, Text: e.Body})
	if err != nil {
		return fmt.Errorf("marshal resend payload: %w", err)
	}

	status, retryAfter, err := m.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		m.logger.Warn("resend rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}

		status, _, err = m.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to resend (retry): %w", err)
		}
		if !ok(status) {
			return fmt.Errorf("resend returned %d on retry", status)
		}
		return nil
	}

	if !ok(status) {
		return fmt.Errorf("resend returned %d", status)
	}
	return nil
}

func (m *ResendMailer) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("building resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to resend: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
