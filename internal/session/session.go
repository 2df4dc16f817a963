// Package session provides in-memory session storage for conversation history.
//
// Responsibilities: create/look up sessions, keep their turn history, and
// serialize concurrent exchanges on the same session.
// Thread Safety: Store is safe for concurrent use by multiple goroutines.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session operations.
// These errors are part of the Store's public API and should be checked using errors.Is().
//
// Example:
//
//	sess, err := store.Get(id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // Handle missing session
//	}
var (
	// ErrNotFound indicates the requested session does not exist in the store.
	ErrNotFound = errors.New("session not found")
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Session is a point-in-time snapshot of a stored session.
// Turns is a copy; mutating it does not affect the store.
type Session struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	Turns      []Turn    `json:"turns"`
}

// Info is a lightweight session summary for listings.
type Info struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	TurnCount  int       `json:"turn_count"`
}
