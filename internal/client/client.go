// Package client talks to a running shell daemon over its UI bridge.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/server"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
	"github.com/AdbAutoPlayer/shell/internal/settings"
)

// ErrDaemonNotRunning is returned by Connect when no daemon is running.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client is a bridge API client.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the bridge at host:port.
func New(host string, port int) *Client {
	return &Client{
		base: fmt.Sprintf("http://%s:%d", host, port),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Connect creates a client for the daemon named in daemon.yaml.
func Connect() (*Client, error) {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to load daemon info: %w", err)
	}
	if !running || info == nil {
		return nil, ErrDaemonNotRunning
	}
	return New(info.Host, info.Port), nil
}

// APIError is an error response from the bridge.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ShowWindow asks the daemon to show the main window.
func (c *Client) ShowWindow(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/window/show", nil, nil)
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*server.Status, error) {
	var s server.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/shutdown", nil, nil)
}

// Emit sends an event as the automation engine would. A nil payload sends none.
func (c *Client) Emit(ctx context.Context, name events.Name, payload interface{}) error {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = data
	}
	return c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(string(name)), body, nil)
}

// SettingsForm fetches the current settings with their schema.
func (c *Client) SettingsForm(ctx context.Context) (*settings.Form, error) {
	var f settings.Form
	if err := c.do(ctx, http.MethodGet, "/api/app-settings/form", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveAppSettings replaces and persists the global settings.
func (c *Client) SaveAppSettings(ctx context.Context, s models.AppSettings) (*models.AppSettings, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var saved models.AppSettings
	if err := c.do(ctx, http.MethodPut, "/api/app-settings", body, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// SaveDocument writes a named settings document for a profile and returns its path.
func (c *Client) SaveDocument(ctx context.Context, profileIndex uint8, fileName string, jsonData []byte) (string, error) {
	path := "/api/settings/" + strconv.Itoa(int(profileIndex)) + "/" + url.PathEscape(fileName)
	var resp server.SaveDocumentResponse
	if err := c.do(ctx, http.MethodPost, path, jsonData, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}
