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
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cardcraft/internal/domain"
	applog "cardcraft/internal/log"
	"cardcraft/internal/storage"
	"cardcraft/internal/version"
)

const (
	// DevSecret is used when no auth secret is configured.
	DevSecret = "dev-secret-change-me"

	// SecretHeader carries the shared secret when asking for a token from a
	// server that does not run on DevSecret.
	SecretHeader = "X-CardCraft-Secret"

	maxBodyBytes = 4 << 20
	maxTokenTTL  = 24 * time.Hour
)

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration.
type Config struct {
	Addr   string // http bind address, e.g. ":8080"
	Secret string
}

// Server exposes a TemplateStore over HTTP.
type Server struct {
	store  storage.TemplateStore
	secret string
	mux    *http.ServeMux
	log    *slog.Logger
}

// NewServer wires the routes for store. An empty secret falls back to DevSecret.
func NewServer(store storage.TemplateStore, secret string) *Server {
	s := &Server{store: store, secret: secret, mux: http.NewServeMux(), log: applog.WithComponent("backend")}
	if s.secret == "" {
		s.secret = DevSecret
		s.log.Warn("auth secret not set; using insecure dev secret")
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("cardcraft " + version.String()))
	})
	s.mux.HandleFunc("/api/auth/token", s.handleToken)
	s.mux.HandleFunc("/api/templates", withAuth(s.secret, s.handleList))
	s.mux.HandleFunc("/api/templates/", withAuth(s.secret, s.handleTemplate))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.(Pinger)
	if ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// POST /api/auth/token {subject, ttl_seconds} -> {token, expires_at}
// Open in dev mode; otherwise the caller must send the shared secret in SecretHeader.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if s.secret != DevSecret && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		s.log.Warn("token request rejected", slog.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, errors.New("shared secret required"))
		return
	}
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(bytes.TrimSpace(b)) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode token request: %w", err))
			return
		}
	}
	if req.Subject == "" {
		req.Subject = "dev"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

// TokenResponse is the body of /api/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	if list == nil {
		list = []storage.TemplateInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

// /api/templates/{name}: GET, PUT, DELETE
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request, sub string) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" {
		writeError(w, http.StatusNotFound, errors.New("template name required"))
		return
	}
	l := s.log.With(slog.String("name", name), slog.String("sub", sub))
	switch r.Method {
	case http.MethodGet:
		t, err := s.store.Get(r.Context(), name)
		if err != nil {
			s.fail(w, "get", err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	case http.MethodPut:
		var t domain.Template
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&t); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode template: %w", err))
			return
		}
		t.Name = name
		if err := s.store.Put(r.Context(), t); err != nil {
			s.fail(w, "put", err)
			return
		}
		l.Info("template stored")
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := s.store.Delete(r.Context(), name); err != nil {
			s.fail(w, "delete", err)
			return
		}
		l.Info("template deleted")
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// fail maps store errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= 500 {
		s.log.Error("template request failed", slog.String("op", op), slog.Any("err", err))
	}
	writeError(w, status, err)
}

// StatusFor returns the HTTP status the server uses for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	case errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, domain.ErrDuplicateID),
		errors.Is(err, domain.ErrInvalidGeometry),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrEmptyElementID),
		errors.Is(err, domain.ErrMissingImageData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
