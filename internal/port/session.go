package port

import (
	"context"

	"catalograg/internal/domain"
)

// SessionStore persists per-session conversation history. Ordering is a
// contract: History returns turns oldest-first, in append order.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error

	Close() error
}
