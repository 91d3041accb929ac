package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPConfig describes a JSON delivery API reached with a bearer key.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
	Retries int
}

func newClient(cfg HTTPConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

type apiError struct {
	Message string `json:"message"`
}

func post(ctx context.Context, c *resty.Client, path string, body any) error {
	var apiErr apiError
	resp, err := c.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("notify: %s: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("notify: %s: status %d: %s", path, resp.StatusCode(), apiErr.Message)
		}
		return fmt.Errorf("notify: %s: status %d", path, resp.StatusCode())
	}
	return nil
}

// HTTPMailer posts messages to a transactional email API:
//
//	POST {BaseURL}/messages {"from","to","subject","html"}
type HTTPMailer struct {
	client *resty.Client
	from   string
}

func NewHTTPMailer(cfg HTTPConfig) *HTTPMailer {
	return &HTTPMailer{client: newClient(cfg), from: cfg.From}
}

type emailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if m == nil || m.client.BaseURL == "" {
		return ErrNotConfigured
	}
	return post(ctx, m.client, "/messages", emailMessage{
		From:    m.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
}

// HTTPSMSSender posts messages to an SMS gateway:
//
//	POST {BaseURL}/sms {"from","to","body"}
type HTTPSMSSender struct {
	client *resty.Client
	from   string
}

func NewHTTPSMSSender(cfg HTTPConfig) *HTTPSMSSender {
	return &HTTPSMSSender{client: newClient(cfg), from: cfg.From}
}

type smsMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if s == nil || s.client.BaseURL == "" {
		return ErrNotConfigured
	}
	return post(ctx, s.client, "/sms", smsMessage{From: s.from, To: to, Body: body})
}
