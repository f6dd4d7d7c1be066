/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

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

	"cardcraft/internal/domain"
	"cardcraft/internal/storage"
)

// Client is a remote TemplateStore backed by the HTTP API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	Secret  string // shared secret, only sent when asking for a token
	client  *http.Client
}

var _ storage.TemplateStore = (*Client)(nil)

// NewClient creates a new backend client. A trailing slash on baseURL is dropped.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient swaps the transport, mainly for timeouts and TLS settings.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// apiError carries the server's error message and status.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return fmt.Sprintf("server: %d %s", e.Status, e.Message) }

// Unwrap maps statuses back to the storage sentinels so callers can use errors.Is.
func (e *apiError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return storage.ErrTemplateNotFound
	case http.StatusInsufficientStorage:
		return storage.ErrQuotaExceeded
	case http.StatusUnauthorized:
		return ErrBadToken
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, p string, body, dest any) error {
	return c.doWith(ctx, method, p, nil, body, dest)
}

func (c *Client) doWith(ctx context.Context, method, p string, hdr http.Header, body, dest any) error {
	u, err := url.Parse(c.BaseURL + p)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(b, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(b))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func templatePath(name string) (string, error) {
	n, err := storage.NormalizeName(name)
	if err != nil {
		return "", err
	}
	return "/api/templates/" + url.PathEscape(n), nil
}

// IssueToken requests a bearer token and stores it on the client.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (TokenResponse, error) {
	var tr TokenResponse
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var hdr http.Header
	if c.Secret != "" {
		hdr = http.Header{}
		hdr.Set(SecretHeader, c.Secret)
	}
	if err := c.doWith(ctx, http.MethodPost, "/api/auth/token", hdr, req, &tr); err != nil {
		return TokenResponse{}, err
	}
	c.Token = tr.Token
	return tr, nil
}

// Healthy reports whether /healthz answers.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("backend unhealthy: " + resp.Status)
	}
	return nil
}

func (c *Client) Put(ctx context.Context, t domain.Template) error {
	p, err := templatePath(t.Name)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, p, t, nil)
}

func (c *Client) Get(ctx context.Context, name string) (domain.Template, error) {
	p, err := templatePath(name)
	if err != nil {
		return domain.Template{}, err
	}
	var t domain.Template
	if err := c.do(ctx, http.MethodGet, p, nil, &t); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

func (c *Client) List(ctx context.Context) ([]storage.TemplateInfo, error) {
	var list []storage.TemplateInfo
	if err := c.do(ctx, http.MethodGet, "/api/templates", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	p, err := templatePath(name)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
