package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/auditportal/auditportal/internal/chat"
	"github.com/auditportal/auditportal/internal/constants"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/session"
)

type stubBackend struct {
	mu         sync.Mutex
	history    []models.ChatMessage
	historyErr error
	startErr   error
}

func (b *stubBackend) StartChat(ctx context.Context, req models.StartChatRequest) (string, error) {
	if b.startErr != nil {
		return "", b.startErr
	}
	return "conv-1", nil
}

func (b *stubBackend) ChatHistory(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return append([]models.ChatMessage(nil), b.history...), nil
}

func (b *stubBackend) SendChat(ctx context.Context, req models.SendChatRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, models.ChatMessage{Direction: models.DirectionInbound, Body: req.Text})
	return nil
}

func (b *stubBackend) setErr(err error) {
	b.mu.Lock()
	b.historyErr = err
	b.mu.Unlock()
}

func newChat(b *stubBackend) ChatModel {
	conv := chat.NewConversation(b, session.Identity{Username: "alice", ProjectName: "Audit 2024"}, nil)
	return NewChatModel(ChatOptions{Conversation: conv})
}

func updateChat(t *testing.T, m ChatModel, msg tea.Msg) (ChatModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(ChatModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return cm, cmd
}

func readyChat(t *testing.T, b *stubBackend) ChatModel {
	t.Helper()
	m := newChat(b)
	m, cmd := updateChat(t, m, m.ensure()())
	if cmd == nil {
		t.Fatal("ready conversation should schedule a refresh")
	}
	return m
}

func TestChatModelShowsHistoryAndSends(t *testing.T) {
	b := &stubBackend{history: []models.ChatMessage{
		{Direction: models.DirectionOutbound, Body: "hello, how can we help?"},
	}}
	m := readyChat(t, b)

	view := m.View()
	if !strings.Contains(view, "Support: hello, how can we help?") {
		t.Errorf("history not rendered:\n%s", view)
	}
	if !strings.Contains(view, "conv-1") {
		t.Errorf("conversation id not shown:\n%s", view)
	}

	m, _ = updateChat(t, m, runes("hi there"))
	m, cmd := updateChat(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should send")
	}
	if m.input.Value() != "" {
		t.Error("input should be cleared after send")
	}
	m, _ = updateChat(t, m, cmd())
	if !strings.Contains(m.View(), "You: hi there") {
		t.Errorf("sent message not rendered:\n%s", m.View())
	}
}

func TestChatModelIgnoresBlankInput(t *testing.T) {
	m := readyChat(t, &stubBackend{})
	m, _ = updateChat(t, m, runes("   "))
	if _, cmd := updateChat(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank input should not be sent")
	}
}

func TestChatModelKeepsHistoryOnError(t *testing.T) {
	b := &stubBackend{history: []models.ChatMessage{{Direction: models.DirectionOutbound, Sender: "Bat", Body: "first"}}}
	m := readyChat(t, b)

	b.setErr(errors.New("500 Internal Server Error"))
	m, cmd := updateChat(t, m, m.refresh()())
	if cmd == nil {
		t.Error("polling should continue after a failed refresh")
	}
	view := m.View()
	if !strings.Contains(view, "Bat: first") {
		t.Errorf("previous history should stay visible:\n%s", view)
	}
	if !strings.Contains(view, "chat unavailable") {
		t.Errorf("error should be shown:\n%s", view)
	}
}

func TestChatModelStartFailure(t *testing.T) {
	m := newChat(&stubBackend{startErr: errors.New("connection refused")})
	m, cmd := updateChat(t, m, m.ensure()())
	if cmd != nil {
		t.Error("no polling without a conversation")
	}
	if !strings.Contains(m.View(), "connection refused") {
		t.Errorf("start error not shown:\n%s", m.View())
	}
}

func TestChatModelStopsPollingOnQuit(t *testing.T) {
	m := readyChat(t, &stubBackend{})

	m, cmd := updateChat(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c should quit")
	}
	if _, cmd := updateChat(t, m, chatTickMsg(time.Now())); cmd != nil {
		t.Error("tick after quit should not refresh")
	}
	if _, cmd := updateChat(t, m, chatRefreshedMsg{}); cmd != nil {
		t.Error("refresh after quit should not schedule another tick")
	}
}

func TestChatModelInterval(t *testing.T) {
	if got := NewChatModel(ChatOptions{}).opts.Interval; got != constants.ChatPollInterval {
		t.Errorf("default interval = %v, want %v", got, constants.ChatPollInterval)
	}
	if got := NewChatModel(ChatOptions{Interval: 10 * time.Millisecond}).opts.Interval; got != constants.MinChatPollInterval {
		t.Errorf("short interval = %v, want %v", got, constants.MinChatPollInterval)
	}
}
