package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// BackendClient talks to the portal backend's auth endpoints.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     Logger
}

// BackendOption customizes client construction.
type BackendOption func(*BackendClient)

// WithHTTPClient overrides the HTTP client used for backend calls.
func WithHTTPClient(client *http.Client) BackendOption {
	return func(c *BackendClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBackendLogger overrides the client logger.
func WithBackendLogger(logger Logger) BackendOption {
	return func(c *BackendClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBackendClient builds a client for the backend at baseURL.
func NewBackendClient(baseURL string, opts ...BackendOption) *BackendClient {
	c := &BackendClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// loginResponse is the body every successful credential exchange returns.
type loginResponse struct {
	Token       string `json:"token"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
}

// errorResponse is the body the backend returns on failure. Code is the
// machine-readable taxonomy code; Message is display prose the client never
// branches on.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Login exchanges username/password credentials for a token.
func (c *BackendClient) Login(ctx context.Context, username, password string) (*VerifiedLogin, error) {
	body := map[string]string{"username": username, "password": password}
	resp := &loginResponse{}
	if err := c.post(ctx, "/auth/login", body, resp); err != nil {
		return nil, err
	}
	return c.toVerifiedLogin(resp)
}

// RequestOTP asks the backend to issue and deliver an OTP (fallback
// provider send).
func (c *BackendClient) RequestOTP(ctx context.Context, phone string) error {
	body := map[string]string{"phoneNumber": phone}
	return c.post(ctx, "/auth/otp/request", body, nil)
}

// VerifyOTP exchanges a backend-issued OTP for a token (fallback provider
// verify).
func (c *BackendClient) VerifyOTP(ctx context.Context, phone, otp string) (*VerifiedLogin, error) {
	body := map[string]string{"phoneNumber": phone, "otp": otp}
	resp := &loginResponse{}
	if err := c.post(ctx, "/auth/otp/verify", body, resp); err != nil {
		return nil, err
	}
	return c.toVerifiedLogin(resp)
}

// VerifyAssertion exchanges a primary-provider assertion token for a
// backend token.
func (c *BackendClient) VerifyAssertion(ctx context.Context, phone, assertionToken, otp string) (*VerifiedLogin, error) {
	body := map[string]string{"phoneNumber": phone, "assertionToken": assertionToken, "otp": otp}
	resp := &loginResponse{}
	if err := c.post(ctx, "/auth/otp/verify-assertion", body, resp); err != nil {
		return nil, err
	}
	return c.toVerifiedLogin(resp)
}

func (c *BackendClient) toVerifiedLogin(resp *loginResponse) (*VerifiedLogin, error) {
	if resp.Token == "" {
		return nil, goerrors.New("backend response is missing a token", goerrors.CategoryInternal).
			WithTextCode(TextCodeUnknownServer)
	}

	principal := Principal{
		ID:          resp.ID,
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
		Phone:       resp.Phone,
	}
	if role, ok := ParseRole(resp.Role); ok {
		principal.Role = role
	}

	// The token claims are authoritative for fields the body omits.
	if claims, err := PrincipalFromToken(resp.Token); err == nil {
		if principal.ID == "" {
			principal.ID = claims.ID
		}
		if principal.DisplayName == "" {
			principal.DisplayName = claims.DisplayName
		}
		if principal.Role == "" {
			principal.Role = claims.Role
		}
	}

	return &VerifiedLogin{Token: resp.Token, Principal: principal}, nil
}

func (c *BackendClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build backend request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request %s failed: %v", path, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "backend unreachable").
			WithTextCode(TextCodeNetworkUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to read backend response").
			WithTextCode(TextCodeNetworkUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := &errorResponse{}
		if unmarshalErr := json.Unmarshal(data, errBody); unmarshalErr != nil || errBody.Code == "" {
			c.logger.Error("backend %s returned status %d with unclassified body", path, resp.StatusCode)
			return ErrUnknownServerError
		}
		return taxonomyFromCode(errBody.Code)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal,
			fmt.Sprintf("unable to decode backend response from %s", path)).
			WithTextCode(TextCodeUnknownServer)
	}
	return nil
}

// FallbackProvider is the backend's own OTP path, used when the primary
// provider cannot issue a challenge.
type FallbackProvider struct {
	backend *BackendClient
	now     func() time.Time
}

// NewFallbackProvider builds the backend-issued OTP provider.
func NewFallbackProvider(backend *BackendClient) *FallbackProvider {
	return &FallbackProvider{backend: backend, now: time.Now}
}

func (p *FallbackProvider) Kind() ProviderKind {
	return ProviderFallback
}

// Send asks the backend to deliver an OTP. The backend keeps the challenge
// server-side, so the receipt carries a locally minted handle.
func (p *FallbackProvider) Send(ctx context.Context, phone string) (*ChallengeReceipt, error) {
	if err := p.backend.RequestOTP(ctx, phone); err != nil {
		return nil, err
	}
	return &ChallengeReceipt{
		Provider:    ProviderFallback,
		ChallengeID: uuid.NewString(),
		SentAt:      p.now(),
	}, nil
}

// Verify submits the raw code to the backend's verify endpoint.
func (p *FallbackProvider) Verify(ctx context.Context, phone, code string, _ *ChallengeReceipt) (*VerifiedLogin, error) {
	return p.backend.VerifyOTP(ctx, phone, code)
}
