// Package chat keeps a support conversation in sync with the backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/session"
)

// ErrEmptyMessage is returned when sending blank text.
var ErrEmptyMessage = errors.New("message is empty")

// Backend is the chat part of the portal API. *api.Client implements it.
type Backend interface {
	StartChat(ctx context.Context, req models.StartChatRequest) (string, error)
	ChatHistory(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	SendChat(ctx context.Context, req models.SendChatRequest) error
}

// Conversation is one user's support conversation.
type Conversation struct {
	backend  Backend
	identity session.Identity
	logger   *logging.Logger

	mu       sync.RWMutex
	id       string
	messages []models.ChatMessage
	lastErr  error
}

// NewConversation creates a conversation for identity. Ensure must be
// called before Refresh or Send.
func NewConversation(backend Backend, identity session.Identity, logger *logging.Logger) *Conversation {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Conversation{
		backend:  backend,
		identity: identity,
		logger:   logger.Named("chat"),
		messages: []models.ChatMessage{},
	}
}

// Ensure starts a conversation, or resumes the current one, and returns
// its id.
func (c *Conversation) Ensure(ctx context.Context) (string, error) {
	c.mu.RLock()
	current := c.id
	c.mu.RUnlock()

	id, err := c.backend.StartChat(ctx, models.StartChatRequest{
		UserID:         c.identity.Username,
		ProjectName:    c.identity.ProjectName,
		ConversationID: current,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start conversation: %w", err)
	}

	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
	c.logger.Debug().Str("conversation", id).Msg("conversation ready")
	return id, nil
}

// ID returns the conversation id, or "" before Ensure.
func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Refresh reloads the history and returns how many messages are new. On
// error the previous messages are kept.
func (c *Conversation) Refresh(ctx context.Context) (int, error) {
	id := c.ID()
	if id == "" {
		return 0, errors.New("conversation not started")
	}

	msgs, err := c.backend.ChatHistory(ctx, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.logger.Warn().Err(err).Str("conversation", id).Msg("history load failed")
		return 0, err
	}
	added := len(msgs) - len(c.messages)
	if added < 0 {
		added = 0
	}
	c.messages = msgs
	c.lastErr = nil
	return added, nil
}

// Send posts text and reloads the history.
func (c *Conversation) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	id := c.ID()
	if id == "" {
		return errors.New("conversation not started")
	}
	err := c.backend.SendChat(ctx, models.SendChatRequest{
		ConversationID: id,
		UserID:         c.identity.Username,
		Text:           text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	_, err = c.Refresh(ctx)
	return err
}

// Messages returns a copy of the loaded history.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// LastError returns the error of the most recent Refresh, if it failed.
func (c *Conversation) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Mine reports whether m was written by the portal user.
func Mine(m models.ChatMessage) bool {
	return m.Direction == models.DirectionInbound
}
