package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Kind classifies a lookup failure.
type Kind string

const (
	// NotFound: the platform has no user, or the user has no username.
	NotFound Kind = "not_found"
	// RateLimited: the platform told us to back off.
	RateLimited Kind = "rate_limited"
	// Unauthorized: the access token was rejected. Fatal for a whole run.
	Unauthorized Kind = "unauthorized"
	// Transient: network failure or a 5xx.
	Transient Kind = "transient"
)

// LookupError reports why a user id could not be resolved.
type LookupError struct {
	Kind   Kind
	UserID string
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup user %s: %s: %v", e.UserID, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an Unauthorized lookup failure.
func IsUnauthorized(err error) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Kind == Unauthorized
}

// Client resolves platform member ids to profile attributes over the
// platform's read API. Rate-limited calls are retried a bounded number of
// times with exponential backoff before the error is surfaced.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	retries uint64
	log     Logger
}

// NewClient creates an identity client. baseURL is the API root, e.g.
// "https://www.patreon.com/api/oauth2/v2".
func NewClient(baseURL, token string, log Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		token:   token,
		retries: 3,
		log:     log,
	}
}

// userResponse mirrors the slice of the user payload we consume. The username
// lives in the profile's social connections, not in the top-level attributes.
type userResponse struct {
	Data struct {
		Attributes struct {
			FullName          string `json:"full_name"`
			SocialConnections struct {
				Patreon struct {
					UserName string `json:"user_name"`
				} `json:"patreon"`
			} `json:"social_connections"`
		} `json:"attributes"`
	} `json:"data"`
}

// Resolve returns the username for a member id. Errors are always
// *LookupError so callers can dispatch on the failure kind.
func (c *Client) Resolve(ctx context.Context, userID string) (string, error) {
	var username string

	operation := func() error {
		u, err := c.fetchUsername(ctx, userID)
		if err != nil {
			var le *LookupError
			if errors.As(err, &le) && (le.Kind == RateLimited || le.Kind == Transient) {
				c.log.Warn("lookup retrying", "user_id", userID, "kind", le.Kind)
				return err
			}
			return backoff.Permanent(err)
		}
		username = u
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			return "", le
		}
		return "", &LookupError{Kind: Transient, UserID: userID, Err: err}
	}
	return username, nil
}

func (c *Client) fetchUsername(ctx context.Context, userID string) (string, error) {
	u := fmt.Sprintf("%s/user/%s?fields%%5Buser%%5D=full_name,social_connections", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &LookupError{Kind: Transient, UserID: userID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &LookupError{Kind: Transient, UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &LookupError{Kind: NotFound, UserID: userID, Err: errors.New("user not found")}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &LookupError{Kind: RateLimited, UserID: userID, Err: errors.New("rate limited")}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &LookupError{Kind: Unauthorized, UserID: userID, Err: fmt.Errorf("api responded %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &LookupError{Kind: Transient, UserID: userID, Err: fmt.Errorf("api responded %d", resp.StatusCode)}
	}

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", &LookupError{Kind: Transient, UserID: userID, Err: fmt.Errorf("decode response: %w", err)}
	}

	username := ur.Data.Attributes.SocialConnections.Patreon.UserName
	if username == "" {
		return "", &LookupError{Kind: NotFound, UserID: userID, Err: errors.New("user has no username")}
	}
	c.log.Debug("resolved user", "user_id", userID, "username", username)
	return username, nil
}
