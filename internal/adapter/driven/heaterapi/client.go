// Package heaterapi implements the HeaterAPI port against the remote
// instance-management HTTP API.
package heaterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HeaterAPI = (*Client)(nil)

// Client implements the driven.HeaterAPI port. It owns no state beyond its
// transport: every method is a single request, no retries, and no client-side
// timeout. Callers bound calls through the context if they need to.
type Client struct {
	http    *http.Client
	baseURL *url.URL
}

// NewClient creates a Client for the API rooted at baseURL
// (e.g. "http://localhost:8000").
func NewClient(baseURL string) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{}, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. Tests use
// it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parsing base URL %q: scheme must be http or https", baseURL)
	}

	return &Client{http: httpClient, baseURL: u}, nil
}

// Authenticate posts form-encoded credentials to /auth/token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (model.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/token", "", strings.NewReader(form.Encode()))
	if err != nil {
		return model.Token{}, opError(model.KindAuth, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok model.Token
	if err := c.do(req, model.KindAuth, &tok); err != nil {
		return model.Token{}, err
	}
	if tok.AccessToken == "" {
		return model.Token{}, opError(model.KindAuth, 0, fmt.Errorf("response has no access_token"))
	}
	return tok, nil
}

// Register posts a JSON {email, password} body to /auth/register.
func (c *Client) Register(ctx context.Context, email, password string) (model.Confirmation, error) {
	body := map[string]string{"email": email, "password": password}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/register", "", body)
	if err != nil {
		return nil, opError(model.KindRegistration, 0, err)
	}

	conf := model.Confirmation{}
	if err := c.do(req, model.KindRegistration, &conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// ListInstances fetches GET /instances/.
func (c *Client) ListInstances(ctx context.Context, token string) ([]model.Instance, error) {
	if token == "" {
		return nil, opError(model.KindFetch, 0, model.ErrNotAuthenticated)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/instances/", token, nil)
	if err != nil {
		return nil, opError(model.KindFetch, 0, err)
	}

	var instances []model.Instance
	if err := c.do(req, model.KindFetch, &instances); err != nil {
		return nil, err
	}
	if instances == nil {
		instances = []model.Instance{}
	}
	return instances, nil
}

// CreateInstance posts a JSON {name} body to /instances/. The name is sent
// as given; callers decide whether to validate it.
func (c *Client) CreateInstance(ctx context.Context, token, name string) (model.Instance, error) {
	if token == "" {
		return model.Instance{}, opError(model.KindCreate, 0, model.ErrNotAuthenticated)
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/instances/", token, map[string]string{"name": name})
	if err != nil {
		return model.Instance{}, opError(model.KindCreate, 0, err)
	}

	var inst model.Instance
	if err := c.do(req, model.KindCreate, &inst); err != nil {
		return model.Instance{}, err
	}
	return inst, nil
}

// pairingResponse is the body of GET /instances/{id}/qrcode. The backend
// sends {"qrcode": null} or omits the key when there is nothing to scan.
type pairingResponse struct {
	QRCode *string `json:"qrcode"`
}

// FetchPairingCode fetches GET /instances/{id}/qrcode. A missing or null
// qrcode is returned as ("", nil).
func (c *Client) FetchPairingCode(ctx context.Context, token string, instanceID int64) (string, error) {
	if token == "" {
		return "", opError(model.KindPairing, 0, model.ErrNotAuthenticated)
	}

	path := "/instances/" + strconv.FormatInt(instanceID, 10) + "/qrcode"
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return "", opError(model.KindPairing, 0, err)
	}

	var resp pairingResponse
	if err := c.do(req, model.KindPairing, &resp); err != nil {
		return "", err
	}
	if resp.QRCode == nil {
		return "", nil
	}
	return *resp.QRCode, nil
}

// SetWarming posts to /instances/{id}/warming/start or /warming/stop.
func (c *Client) SetWarming(ctx context.Context, token string, instanceID int64, enable bool) (model.Confirmation, error) {
	if token == "" {
		return nil, opError(model.KindToggle, 0, model.ErrNotAuthenticated)
	}

	action := "stop"
	if enable {
		action = "start"
	}
	path := "/instances/" + strconv.FormatInt(instanceID, 10) + "/warming/" + action

	req, err := c.newRequest(ctx, http.MethodPost, path, token, nil)
	if err != nil {
		return nil, opError(model.KindToggle, 0, err)
	}

	conf := model.Confirmation{}
	if err := c.do(req, model.KindToggle, &conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// newRequest builds a request for path relative to the base URL, attaching a
// bearer token when one is given.
func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path, token string, v any) (*http.Request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, token, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. Any transport failure,
// non-2xx status or undecodable body becomes an *model.OpError of kind. The
// body of a failed response is drained but never parsed.
func (c *Client) do(req *http.Request, kind model.ErrorKind, out any) error {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("heater api call failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err,
		)
		return opError(kind, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("heater api call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Microsecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return opError(kind, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return opError(kind, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func opError(kind model.ErrorKind, status int, err error) *model.OpError {
	return &model.OpError{Kind: kind, Status: status, Err: err}
}
