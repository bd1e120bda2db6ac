// Package botapi serves the polling protocol the chatbot backends speak: a
// Telegram-Bot-API-shaped pair of operations, getUpdates and sendMessage,
// scoped by a per-instance token in the URL path.
package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deeppavlov/convai-router-bot/queue"
	"github.com/deeppavlov/convai-router-bot/router"
)

const (
	defaultLimit = 100
	maxLimit     = 100
	maxTimeout   = 60 * time.Second
)

type Server struct {
	router *router.Router
	log    *slog.Logger
}

func NewServer(r *router.Router, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{router: r, log: log}
}

// Register mounts the bot endpoints on mux. The token is glued to the "bot"
// prefix in a single path segment, Telegram-style, so routing is by hand.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/bot") {
			s.handleBot(w, r)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"time": time.Now().Format(time.RFC3339Nano),
		})
	})
}

// Handler returns a standalone handler serving only the bot endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	token, method, ok := splitBotPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	params, err := parseParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch method {
	case "getUpdates":
		s.handleGetUpdates(r.Context(), w, token, params)
	case "sendMessage":
		s.handleSendMessage(r.Context(), w, token, params)
	default:
		http.NotFound(w, r)
	}
}

// splitBotPath extracts the instance token and method from a path shaped
// like /bot{token}/{method}.
func splitBotPath(path string) (token, method string, ok bool) {
	rest, found := strings.CutPrefix(path, "/bot")
	if !found {
		return "", "", false
	}
	token, method, found = strings.Cut(rest, "/")
	if !found || token == "" || method == "" {
		return "", "", false
	}
	return token, method, true
}

func (s *Server) handleGetUpdates(ctx context.Context, w http.ResponseWriter, token string, p *params) {
	offset, err := p.getInt("offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := p.getInt("limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	timeoutSec, err := p.getInt("timeout", 0)
	if err != nil || timeoutSec < 0 {
		writeError(w, http.StatusBadRequest, "invalid timeout")
		return
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	// A non-zero offset is the backend's cursor: everything below it is
	// confirmed delivered.
	if offset > 0 {
		if err := s.router.AcknowledgeUpdates(token, offset-1); err != nil {
			s.writeRouterError(w, token, err)
			return
		}
	}

	updates, err := s.router.PollUpdates(ctx, token, timeout, int(limit))
	if err != nil {
		s.writeRouterError(w, token, err)
		return
	}
	result := make([]wireUpdate, 0, len(updates))
	for _, u := range updates {
		result = append(result, toWireUpdate(u))
	}
	writeOK(w, result)
}

func (s *Server) handleSendMessage(ctx context.Context, w http.ResponseWriter, token string, p *params) {
	chatID, err := p.getInt("chat_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat_id")
		return
	}
	text, ok := p.get("text")
	if chatID == 0 || !ok || strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "chat_id and text are required")
		return
	}

	if err := s.router.DispatchReply(ctx, token, chatID, text); err != nil {
		s.writeRouterError(w, token, err)
		return
	}
	writeOK(w, toWireUpdate(queue.Update{
		ChatID:     chatID,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}).Message)
}

func (s *Server) writeRouterError(w http.ResponseWriter, token string, err error) {
	switch {
	case errors.Is(err, router.ErrUnknownInstance):
		s.log.Warn("unregistered instance token", "token", token)
		writeError(w, http.StatusUnauthorized, "BotNotRegistered")
	case errors.Is(err, router.ErrInstanceBusy):
		writeError(w, http.StatusConflict, "another poll is in flight for this instance")
	case errors.Is(err, router.ErrUnknownTarget):
		writeError(w, http.StatusBadRequest, "unknown chat_id")
	case errors.Is(err, router.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, "delivery to end-user failed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusBadRequest, "request cancelled")
	default:
		s.log.Error("bot endpoint failed", "token", token, "err", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error: %v", err))
	}
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okEnvelope{OK: true, Result: result})
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errEnvelope{OK: false, ErrorCode: status, Description: description})
}

// params resolves request parameters with the lookup order the backends
// rely on: query string first, then a JSON body, then form fields.
type params struct {
	query map[string][]string
	body  map[string]any
	form  map[string][]string
}

func parseParams(r *http.Request) (*params, error) {
	p := &params{query: r.URL.Query()}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body")
		}
		p.form = r.PostForm
	default:
		var m map[string]any
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&m); err == nil {
			p.body = m
		}
	}
	return p, nil
}

func (p *params) get(name string) (string, bool) {
	if vs, ok := p.query[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	if v, ok := p.body[name]; ok {
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	if vs, ok := p.form[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

func (p *params) getInt(name string, fallback int64) (int64, error) {
	raw, ok := p.get(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
