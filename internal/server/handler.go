package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"catalograg/config"
	"catalograg/internal/domain"
	"catalograg/internal/port"
	"catalograg/internal/usecase"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Retriever is the retrieval pipeline as the handler sees it.
type Retriever interface {
	Retrieve(ctx context.Context, history []domain.ConversationTurn, query string, useReranker bool, opts usecase.RetrieveOptions) (*domain.RetrievalSet, error)
}

// Answerer composes a natural-language answer from retrieval results.
type Answerer interface {
	Answer(ctx context.Context, query string, results []domain.RetrievalResult) (string, error)
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Retriever Retriever
	Answerer  Answerer
	Sessions  port.SessionStore
	Retrieve  config.RetrieveConfig
}

// NewHandler returns the HTTP API: POST /api/chat and GET /health.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	// The chat widget is served from another origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Post("/api/chat", handleChat(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		query, err := req.lastUserQuery()
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		// The client either sends the whole conversation or just the new
		// query. A single-message request pulls history from the session
		// store; a multi-message request is authoritative as sent.
		history := req.Messages[:len(req.Messages)-1]
		if len(history) == 0 && deps.Sessions != nil {
			stored, err := deps.Sessions.History(r.Context(), sessionID)
			if err != nil {
				slog.Warn("session history unavailable", "session_id", sessionID, "error", err)
			} else {
				history = stored
			}
		}

		topK := req.TopK
		if topK <= 0 {
			topK = deps.Retrieve.TopK
		}
		useReranker := true
		if req.UseReranker != nil {
			useReranker = *req.UseReranker
		}

		set, err := deps.Retriever.Retrieve(r.Context(), history, query, useReranker, usecase.RetrieveOptions{
			TopK:          topK,
			CandidateK:    deps.Retrieve.CandidateK(topK),
			HistoryWindow: deps.Retrieve.HistoryWindow,
			Timeout:       time.Duration(deps.Retrieve.TimeoutSecs) * time.Second,
		})
		if err != nil {
			// The cause goes to the log, never to the client.
			slog.Error("retrieval failed", "session_id", sessionID, "error", err)
			if errors.Is(err, domain.ErrIndexEmpty) {
				httpError(w, http.StatusServiceUnavailable, "api_error", "product index is empty, run ingestion first")
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "retrieval unavailable")
			return
		}
		if set.RerankerFallback {
			slog.Warn("reranker unavailable, returned similarity ordering", "session_id", sessionID)
		}

		answer, err := deps.Answerer.Answer(r.Context(), query, set.Results)
		if err != nil {
			slog.Error("answer generation failed", "session_id", sessionID, "error", err)
			httpError(w, http.StatusBadGateway, "api_error", "answer generation unavailable")
			return
		}

		userTurn := domain.ConversationTurn{Role: domain.RoleUser, Content: query}
		assistantTurn := domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer}
		if deps.Sessions != nil {
			if err := deps.Sessions.Append(r.Context(), sessionID, userTurn, assistantTurn); err != nil {
				slog.Warn("session append failed", "session_id", sessionID, "error", err)
			}
		}

		retrieved := make([]RetrievedDocument, len(set.Results))
		for i, res := range set.Results {
			retrieved[i] = RetrievedDocument{
				Metadata: res.Document.Metadata,
				Snippet:  snippet(res.Document.Text, deps.Retrieve.SnippetLength),
			}
		}

		writeJSON(w, http.StatusOK, ChatResponse{
			Status:    "success",
			SessionID: sessionID,
			Answer:    answer,
			Messages:  append(append(append([]domain.ConversationTurn{}, history...), userTurn), assistantTurn),
			Retrieved: retrieved,
		})
	}
}

// lastUserQuery validates the message list and extracts the query text.
func (req *ChatRequest) lastUserQuery() (string, error) {
	if len(req.Messages) == 0 {
		return "", errors.New("messages is required and must not be empty")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != domain.RoleUser {
		return "", errors.New("last message must have role \"user\"")
	}
	query := strings.TrimSpace(last.Content)
	if query == "" {
		return "", errors.New("last message must not be empty")
	}
	return query, nil
}

// snippet truncates to at most limit runes. limit <= 0 disables truncation.
func snippet(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
