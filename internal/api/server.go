// Package api exposes the scheduling operations and the chat webhook over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/janic0/autotwitter/internal/bot"
	"github.com/janic0/autotwitter/internal/logging"
	"github.com/janic0/autotwitter/internal/models"
	"github.com/janic0/autotwitter/internal/posts"
	"github.com/janic0/autotwitter/internal/telegram"
)

// Config holds the API's authentication material.
type Config struct {
	// APIKey, when set, is required as a bearer token on every request
	// except the webhook, which has its own endpoint token.
	APIKey string

	// WebhookToken guards the chat webhook path.
	WebhookToken string
}

// Server is the HTTP surface.
type Server struct {
	cfg    Config
	posts  *posts.Service
	bot    *bot.Handler
	logger zerolog.Logger
	router chi.Router
}

// NewServer creates the HTTP surface. bot may be nil when the chat
// integration is disabled; the webhook then responds 404.
func NewServer(cfg Config, postService *posts.Service, botHandler *bot.Handler) *Server {
	s := &Server{
		cfg:    cfg,
		posts:  postService,
		bot:    botHandler,
		logger: logging.Component("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/telegram", func(r chi.Router) {
		r.Post("/{token}", s.handleWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/schedule", s.handleSchedule)
		r.Post("/config", s.handleConfig)
		r.Post("/delete", s.handleDelete)
		r.Get("/posts", s.handlePosts)
		r.Post("/link", s.handleLink)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// auth enforces the configured bearer token.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token != s.cfg.APIKey {
				s.writeError(w, http.StatusUnauthorized, errors.New("invalid or missing bearer token"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type scheduleRequest struct {
	AccountID string `json:"account_id"`
	Text      string `json:"text"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := s.posts.Submit(r.Context(), req.AccountID, req.Text)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, post)
}

type configRequest struct {
	AccountID string                `json:"account_id"`
	Config    *models.AccountConfig `json:"config"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Config == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("config is required"))
		return
	}
	if err := s.posts.UpdateConfig(r.Context(), req.AccountID, req.Config); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, req.Config)
}

type deleteRequest struct {
	AccountID string `json:"account_id"`
	ID        string `json:"id"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.posts.Delete(r.Context(), req.AccountID, req.ID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("account_id is required"))
		return
	}
	list, err := s.posts.List(r.Context(), accountID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

type linkRequest struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}

// handleLink completes a /start flow: it binds the chat behind the link
// token to an account.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		s.writeError(w, http.StatusNotFound, errors.New("chat integration disabled"))
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.AccountID == "" {
		s.writeError(w, http.StatusBadRequest, models.ErrInvalidAccountID)
		return
	}
	if err := s.bot.LinkChat(r.Context(), req.Token, req.AccountID); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleWebhook ingests pushed chat updates. The path token must match the
// configured webhook token; anything else gets an unrevealing 404.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil || s.cfg.WebhookToken == "" || chi.URLParam(r, "token") != s.cfg.WebhookToken {
		http.NotFound(w, r)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bot.HandleUpdate(r.Context(), update); err != nil {
		s.logger.Warn().Err(err).Msg("webhook update handling failed")
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeDomainError maps domain failures onto HTTP statuses: validation
// failures are the caller's fault, missing entities are 404, the rest is a
// 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var validation *models.ValidationErrors
	switch {
	case errors.As(err, &validation):
		fields := make(map[string]string, len(validation.Fields()))
		for _, f := range validation.Fields() {
			fields[f.Field] = f.Err.Error()
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
	case errors.Is(err, posts.ErrPostNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, models.ErrInvalidAccountID):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// ListenAndServe runs the HTTP server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
