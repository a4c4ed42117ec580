package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Marlon-Urena/userAccountService/pkg/config"
	pkgerrors "github.com/Marlon-Urena/userAccountService/pkg/errors"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
)

const pingTimeout = 5 * time.Second

// TokenInfo is the provider's answer to a successful token verification.
type TokenInfo struct {
	SubjectID string            `json:"subject_id"`
	Claims    map[string]string `json:"claims"`
}

// UserRecord is the provider-owned view of a subject.
type UserRecord struct {
	SubjectID    string            `json:"subject_id"`
	Email        string            `json:"email"`
	DisplayName  string            `json:"display_name"`
	PhoneNumber  string            `json:"phone_number"`
	PhotoURL     string            `json:"photo_url"`
	CustomClaims map[string]string `json:"custom_claims"`
}

// UpdateUserParams carries the provider-record fields this service mirrors.
// Nil fields are left untouched.
type UpdateUserParams struct {
	SubjectID   string  `json:"-"`
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// Client talks to the identity provider's admin REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

func closeBody(ctx context.Context, logg *logger.Logger, body io.Closer, msg string) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && logg != nil {
		logg.Warn(ctx, msg)
	}
}

// NewClient builds an identity-provider client from configuration.
func NewClient(cfg config.IdentityConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("identity provider base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("identity provider api key is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

// VerifyToken asks the provider to validate a bearer token. A provider
// rejection maps to INVALID_CREDENTIAL; a transport failure or provider
// outage maps to PROVIDER_UNAVAILABLE so callers can retry.
func (c *Client) VerifyToken(ctx context.Context, token string) (*TokenInfo, error) {
	body := map[string]string{"token": token}
	resp, err := c.do(ctx, http.MethodPost, "/v1/tokens:verify", body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "verify token")
	}
	defer closeBody(ctx, nil, resp.Body, "identity: closing verify response failed")

	switch {
	case resp.StatusCode == http.StatusOK:
		var info TokenInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "decode verify response")
		}
		if info.SubjectID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeProviderUnavailable, "verify response missing subject")
		}
		return &info, nil
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCredential, "token rejected by provider").
			WithDetails(readErrorBody(resp.Body))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeProviderUnavailable,
			fmt.Sprintf("provider verify returned %s", resp.Status))
	}
}

// GetUser loads the provider record for a subject. A missing record maps
// to UNKNOWN_SUBJECT, distinct from an invalid credential.
func (c *Client) GetUser(ctx context.Context, subjectID string) (*UserRecord, error) {
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	path := "/v1/subjects/" + url.PathEscape(subjectID)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "fetch subject record")
	}
	defer closeBody(ctx, nil, resp.Body, "identity: closing subject response failed")

	switch resp.StatusCode {
	case http.StatusOK:
		var record UserRecord
		if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "decode subject record")
		}
		return &record, nil
	case http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeUnknownSubject, "provider has no record for subject")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeProviderUnavailable,
			fmt.Sprintf("provider lookup returned %s", resp.Status))
	}
}

// UpdateUser patches the provider record for a subject.
func (c *Client) UpdateUser(ctx context.Context, params UpdateUserParams) error {
	if params.SubjectID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject id is required")
	}
	path := "/v1/subjects/" + url.PathEscape(params.SubjectID)
	resp, err := c.do(ctx, http.MethodPatch, path, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "update subject record")
	}
	defer closeBody(ctx, nil, resp.Body, "identity: closing update response failed")

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeUnknownSubject, "provider has no record for subject")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("provider update returned %s", resp.Status)).
			WithDetails(readErrorBody(resp.Body))
	}
}

// Ping verifies the provider API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("identity client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return err
	}
	defer closeBody(ctx, nil, resp.Body, "identity: closing status response failed")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity provider status check failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func readErrorBody(body io.Reader) map[string]any {
	b, _ := io.ReadAll(io.LimitReader(body, 2048))
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil
	}
	return map[string]any{"provider_response": trimmed}
}
