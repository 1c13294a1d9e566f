// Package userservice calls the credential collaborator that holds users'
// decrypted Canvas access tokens.
package userservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"canvas-sync/internal/httpx"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client

	// ServiceToken supplies the service-to-service API key presented in the
	// X-Service-Token header. Wired to the warm secret cache by the app.
	ServiceToken func(ctx context.Context) string
}

func New(baseURL string, timeout time.Duration, serviceToken func(ctx context.Context) string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: timeout,
		},
		ServiceToken: serviceToken,
	}
}

// CredentialNotFoundError means the user has no Canvas token registered.
type CredentialNotFoundError struct {
	CognitoSub string
}

func (e *CredentialNotFoundError) Error() string {
	return fmt.Sprintf("userservice: no canvas credential for %s", e.CognitoSub)
}

// CredentialUnavailableError means the credential service itself failed
// (timeout or 5xx). The hosting platform may redeliver the trigger.
type CredentialUnavailableError struct {
	Cause error
}

func (e *CredentialUnavailableError) Error() string {
	return fmt.Sprintf("userservice: credential service unavailable: %v", e.Cause)
}

func (e *CredentialUnavailableError) Unwrap() error { return e.Cause }

type credentialResponse struct {
	AccessToken string `json:"accessToken"`
}

// GetCanvasToken resolves the decrypted Canvas access token for a user.
// One bounded-timeout attempt; any failure is fatal to the invocation.
func (c *Client) GetCanvasToken(ctx context.Context, cognitoSub string) (string, error) {
	endpoint := fmt.Sprintf("%s/credentials/%s/canvas", c.BaseURL, url.PathEscape(cognitoSub))

	var out credentialResponse
	_, err := httpx.DoJSON(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		r.Header.Set("X-Service-Token", c.ServiceToken(ctx))
		return r, nil
	}, &out)
	if err != nil {
		var herr *httpx.HTTPError
		if errors.As(err, &herr) {
			if herr.StatusCode == http.StatusNotFound {
				return "", &CredentialNotFoundError{CognitoSub: cognitoSub}
			}
			if herr.StatusCode >= 500 {
				return "", &CredentialUnavailableError{Cause: err}
			}
			return "", fmt.Errorf("userservice: get canvas token: %w", err)
		}
		// network error or timeout
		return "", &CredentialUnavailableError{Cause: err}
	}

	if out.AccessToken == "" {
		return "", &CredentialNotFoundError{CognitoSub: cognitoSub}
	}
	return out.AccessToken, nil
}
