// Package remote talks to the betterfly document server over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Quaternijkon/betterfly/internal/models"
)

const (
	apiSignIn     = "/api/auth/signin"
	apiSettings   = "/api/settings"
	apiEventTypes = "/api/event-types"
	apiSessions   = "/api/sessions"
	apiBatch      = "/api/batch"
)

// Sign-in providers understood by the server.
const (
	ProviderAnonymous = "anonymous"
	ProviderLogin     = "login"
)

// ErrUnauthorized is returned when the server rejects the token.
var ErrUnauthorized = errors.New("unauthorized")

// Credentials identify a signed-in user.
type Credentials struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Client is an authenticated connection to one server.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

func New(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func serverError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(data)))
	}
	return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
}

// SignIn exchanges a provider identity for a token.
func SignIn(ctx context.Context, httpClient *http.Client, baseURL, provider, login string) (Credentials, error) {
	payload := map[string]string{"provider": provider}
	if login != "" {
		payload["login"] = login
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Credentials{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+apiSignIn, bytes.NewReader(b))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("sign in failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, serverError(resp)
	}
	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if creds.Token == "" {
		return Credentials{}, errors.New("server returned an empty token")
	}
	return creds, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return serverError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// FetchSettings returns the raw settings document, empty when none is stored.
func (c *Client) FetchSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if err := c.do(ctx, http.MethodGet, apiSettings, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchEventTypes returns every event type document, tombstones included.
func (c *Client) FetchEventTypes(ctx context.Context) ([]models.Document[models.EventType], error) {
	var out []models.Document[models.EventType]
	if err := c.do(ctx, http.MethodGet, apiEventTypes, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchSessions returns every session document, tombstones included.
func (c *Client) FetchSessions(ctx context.Context) ([]models.Document[models.Session], error) {
	var out []models.Document[models.Session]
	if err := c.do(ctx, http.MethodGet, apiSessions, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Commit sends writes as one batch; the server applies it in a single transaction.
func (c *Client) Commit(ctx context.Context, writes []models.Write) error {
	if len(writes) == 0 {
		return nil
	}
	body := struct {
		Writes []models.Write `json:"writes"`
	}{Writes: writes}
	return c.do(ctx, http.MethodPost, apiBatch, body, http.StatusNoContent, nil)
}
