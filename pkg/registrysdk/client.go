package registrysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the HiveCert registry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			// Provisioning applies a full tenant structure.
			Timeout: 2 * time.Minute,
		},
	}
}

// Register provisions a tenant.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.postJSON(ctx, "/v1/admin/register", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendConfirmation asks for a new confirmation email.
func (c *Client) ResendConfirmation(ctx context.Context, email string) error {
	var out MessageResponse
	return c.postJSON(ctx, "/v1/admin/confirm/resend", ResendConfirmationRequest{Email: email}, &out, http.StatusAccepted)
}

// Confirm redeems the token from a confirmation link.
func (c *Client) Confirm(ctx context.Context, token string) (*ConfirmResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/admin/confirm?token="+url.QueryEscape(token), nil, nil)
	if err != nil {
		return nil, err
	}
	var out ConfirmResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendPhoneCode texts a one-time code to phone.
func (c *Client) SendPhoneCode(ctx context.Context, phone string) (*SendPhoneCodeResponse, error) {
	var out SendPhoneCodeResponse
	if err := c.postJSON(ctx, "/v1/otp/phone/send", SendPhoneCodeRequest{PhoneNumber: phone}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPhoneCode redeems a code sent to phone.
func (c *Client) VerifyPhoneCode(ctx context.Context, phone, code string) (*VerifyPhoneCodeResponse, error) {
	var out VerifyPhoneCodeResponse
	req := VerifyPhoneCodeRequest{PhoneNumber: phone, Code: code}
	if err := c.postJSON(ctx, "/v1/otp/phone/verify", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login opens an administrator session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/v1/admin/login", LoginRequest{Email: email, Password: password}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the administrator owning token.
func (c *Client) Me(ctx context.Context, token string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/admin/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, err
	}
	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness checks the registry and its databases.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any, expected int) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}

func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a response with the expected status into target and
// turns anything else into an *APIError.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
