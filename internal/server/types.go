package server

import "catalograg/internal/domain"

// ChatRequest is the body of POST /api/chat. The last message carries the
// current query; any preceding messages are conversation history.
type ChatRequest struct {
	SessionID string                    `json:"session_id,omitempty"`
	UserID    string                    `json:"user_id,omitempty"`
	Messages  []domain.ConversationTurn `json:"messages"`
	TopK      int                       `json:"top_k,omitempty"`

	// UseReranker defaults to true when absent.
	UseReranker *bool `json:"use_reranker,omitempty"`
}

// ChatResponse echoes the full conversation including the new answer.
type ChatResponse struct {
	Status    string                    `json:"status"`
	SessionID string                    `json:"session_id"`
	Answer    string                    `json:"answer"`
	Messages  []domain.ConversationTurn `json:"messages"`
	Retrieved []RetrievedDocument       `json:"retrieved"`
}

// RetrievedDocument is the client-facing view of one retrieval result.
type RetrievedDocument struct {
	Metadata map[string]string `json:"metadata"`
	Snippet  string            `json:"snippet"`
}
