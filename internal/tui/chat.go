package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/auditportal/auditportal/internal/chat"
	"github.com/auditportal/auditportal/internal/constants"
)

// ChatOptions wires the chat view to a conversation.
type ChatOptions struct {
	Context      context.Context
	Conversation *chat.Conversation
	// Interval between history refreshes. Zero means the default.
	Interval time.Duration
}

type chatReadyMsg struct{ err error }

type chatRefreshedMsg struct {
	added int
	err   error
}

type chatSentMsg struct{ err error }

type chatTickMsg time.Time

// ChatModel is the bubbletea model of the support chat. The history is
// refreshed on a tea.Tick chain that ends when the view quits.
type ChatModel struct {
	opts ChatOptions

	viewport viewport.Model
	input    textinput.Model

	ready   bool
	stopped bool
	err     error
	width   int
	height  int
}

// NewChatModel creates the chat view.
func NewChatModel(opts ChatOptions) ChatModel {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	switch {
	case opts.Interval == 0:
		opts.Interval = constants.ChatPollInterval
	case opts.Interval < constants.MinChatPollInterval:
		opts.Interval = constants.MinChatPollInterval
	}

	ti := textinput.New()
	ti.Placeholder = "type a message, enter to send"
	ti.CharLimit = 2000
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("connecting...")

	return ChatModel{opts: opts, viewport: vp, input: ti}
}

// Init starts or resumes the conversation.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("Audit portal: support chat"), textinput.Blink, m.ensure())
}

func (m ChatModel) ensure() tea.Cmd {
	ctx, conv := m.opts.Context, m.opts.Conversation
	return func() tea.Msg {
		if _, err := conv.Ensure(ctx); err != nil {
			return chatReadyMsg{err: err}
		}
		_, err := conv.Refresh(ctx)
		return chatReadyMsg{err: err}
	}
}

func (m ChatModel) refresh() tea.Cmd {
	ctx, conv := m.opts.Context, m.opts.Conversation
	return func() tea.Msg {
		added, err := conv.Refresh(ctx)
		return chatRefreshedMsg{added: added, err: err}
	}
}

func (m ChatModel) send(text string) tea.Cmd {
	ctx, conv := m.opts.Context, m.opts.Conversation
	return func() tea.Msg {
		return chatSentMsg{err: conv.Send(ctx, text)}
	}
}

func (m ChatModel) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return chatTickMsg(t) })
}

// Update handles messages.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}
		m.input.Width = msg.Width - 4
		m.render()
		return m, nil

	case chatReadyMsg:
		m.err = msg.err
		if m.opts.Conversation.ID() == "" {
			return m, nil
		}
		m.ready = true
		m.render()
		m.viewport.GotoBottom()
		return m, m.tick()

	case chatTickMsg:
		if m.stopped {
			return m, nil
		}
		return m, m.refresh()

	case chatRefreshedMsg:
		m.err = msg.err
		if msg.added > 0 {
			m.render()
			m.viewport.GotoBottom()
		}
		if m.stopped {
			return m, nil
		}
		return m, m.tick()

	case chatSentMsg:
		m.err = msg.err
		m.render()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.stopped = true
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			if strings.TrimSpace(text) == "" || !m.ready {
				return m, nil
			}
			m.input.Reset()
			return m, m.send(text)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) render() {
	if !m.ready {
		return
	}
	msgs := m.opts.Conversation.Messages()
	if len(msgs) == 0 {
		m.viewport.SetContent(dimStyle.Render("no messages yet"))
		return
	}
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		var who string
		switch {
		case chat.Mine(msg):
			who = mineStyle.Render("You")
		case msg.Sender != "":
			who = supportStyle.Render(msg.Sender)
		default:
			who = supportStyle.Render("Support")
		}
		if msg.CreatedAt != "" {
			b.WriteString(dimStyle.Render(msg.CreatedAt) + " ")
		}
		b.WriteString(who + ": " + msg.Body)
	}
	m.viewport.SetContent(b.String())
}

// View renders the chat.
func (m ChatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Support chat"))
	if id := m.opts.Conversation.ID(); id != "" {
		b.WriteString(" " + dimStyle.Render("("+id+")"))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(chatErrorText(m.err)))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func chatErrorText(err error) string {
	if errors.Is(err, chat.ErrEmptyMessage) {
		return "message is empty"
	}
	return fmt.Sprintf("chat unavailable: %v", err)
}
