package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMailer_Send(t *testing.T) {
	var got emailMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewHTTPMailer(HTTPConfig{BaseURL: srv.URL, APIKey: "key-123", From: "noreply@hivecert.test"})
	require.NoError(t, m.Send(context.Background(), "jane@example.com", "Hello", "<p>hi</p>"))

	assert.Equal(t, emailMessage{
		From: "noreply@hivecert.test", To: "jane@example.com", Subject: "Hello", HTML: "<p>hi</p>",
	}, got)
}

func TestHTTPMailer_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid recipient"}`))
	}))
	defer srv.Close()

	m := NewHTTPMailer(HTTPConfig{BaseURL: srv.URL, Retries: 2})
	err := m.Send(context.Background(), "nope", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPMailer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewHTTPMailer(HTTPConfig{BaseURL: srv.URL, Retries: 3})
	require.NoError(t, m.Send(context.Background(), "jane@example.com", "s", "b"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPMailer_NotConfigured(t *testing.T) {
	m := NewHTTPMailer(HTTPConfig{})
	require.ErrorIs(t, m.Send(context.Background(), "a@b.co", "s", "b"), ErrNotConfigured)
}

func TestHTTPSMSSender(t *testing.T) {
	var got smsMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sms", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewHTTPSMSSender(HTTPConfig{BaseURL: srv.URL, From: "HiveCert"})
	require.NoError(t, s.SendSMS(context.Background(), "+61400000000", "code 123456"))
	assert.Equal(t, smsMessage{From: "HiveCert", To: "+61400000000", Body: "code 123456"}, got)
}

func TestLogSenders(t *testing.T) {
	l := slogx.Discard()
	require.NoError(t, LogMailer{Logger: l}.Send(context.Background(), "a@b.co", "s", "<p>b</p>"))
	require.NoError(t, LogSMSSender{Logger: l}.SendSMS(context.Background(), "+1", "b"))
}

func TestBuildConfirmationEmail(t *testing.T) {
	e, err := BuildConfirmationEmail(ConfirmationEmailData{
		FirstName:   "Jane",
		DisplayName: `Jane's <Apiary>`,
		Link:        "https://app.hivecert.test/v1/admin/confirm?token=abc",
		ExpiresIn:   24 * time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, "Confirm your HiveCert account", e.Subject)
	assert.Contains(t, e.HTMLBody, `href="https://app.hivecert.test/v1/admin/confirm?token=abc"`)
	assert.Contains(t, e.HTMLBody, "24 hours")
	// Display names are escaped.
	assert.Contains(t, e.HTMLBody, "&lt;Apiary&gt;")
	assert.NotContains(t, e.HTMLBody, "<Apiary>")
	assert.Contains(t, e.TextBody, "https://app.hivecert.test/v1/admin/confirm?token=abc")
}

func TestPhoneCodeMessage(t *testing.T) {
	assert.Equal(t, "HiveCert verification code: 123456. It expires in 10 minutes.",
		PhoneCodeMessage("", "123456", 10*time.Minute))
}
