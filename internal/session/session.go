// ABOUTME: Stable per-visitor session identity derived from durable storage
// ABOUTME: Generates a token once per profile and reuses it across reloads

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/store"
)

// Identity is the opaque per-visitor session token. It is read once at
// widget construction and is immutable for the instance's lifetime; all
// transport calls for that instance carry the same token.
type Identity struct {
	token string
}

// Token returns the session token string.
func (i Identity) Token() string {
	return i.token
}

// storageKey scopes the token to a chatbot so two widgets for different
// chatbots in the same profile do not share a session.
func storageKey(chatbotID string) string {
	if chatbotID == "" {
		return "session_id"
	}
	return "session_id:" + chatbotID
}

// Load returns the persisted session identity for the given chatbot,
// generating and persisting a fresh token when none exists yet.
func Load(ctx context.Context, kv store.KV, chatbotID string) (Identity, error) {
	key := storageKey(chatbotID)

	token, err := kv.Get(ctx, key)
	if err == nil && token != "" {
		return Identity{token: token}, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Identity{}, fmt.Errorf("reading session token: %w", err)
	}

	token = uuid.New().String()
	if err := kv.Set(ctx, key, token); err != nil {
		return Identity{}, fmt.Errorf("persisting session token: %w", err)
	}

	slog.Debug("session token generated", "component", "session", "chatbot_id", chatbotID)
	return Identity{token: token}, nil
}
