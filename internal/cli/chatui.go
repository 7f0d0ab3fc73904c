package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aisocialapp/appcore/internal/models"
	syncsvc "github.com/aisocialapp/appcore/internal/sync"
)

// snapshotMsg carries the latest conversation snapshot into the UI loop.
type snapshotMsg []models.Message

// sendResultMsg reports the outcome of an asynchronous send.
type sendResultMsg struct{ err error }

// ChatModel is the two-pane chat screen: the conversation transcript in
// a viewport above a compose textarea. The transcript re-renders from
// whole snapshots, so optimistic sends, confirmations and pushed
// messages all appear through the same path.
type ChatModel struct {
	self    string
	partner string
	conv    *syncsvc.Conversation

	snapshots <-chan []models.Message
	unsub     func()

	viewport viewport.Model
	textbox  textarea.Model
	info     string

	meStyle    lipgloss.Style
	otherStyle lipgloss.Style
	timeStyle  lipgloss.Style
}

// NewChatModel builds the chat screen over an open conversation.
func NewChatModel(self, partner string, conv *syncsvc.Conversation) ChatModel {
	m := ChatModel{
		self:    self,
		partner: partner,
		conv:    conv,
	}
	m.snapshots, m.unsub = conv.Collection().Subscribe()

	m.viewport = viewport.New(80, 14)
	m.renderTranscript(conv.Messages())

	m.textbox = textarea.New()
	m.textbox.Focus()
	m.textbox.Placeholder = "Send a message..."
	m.textbox.Prompt = "┃ "
	m.textbox.CharLimit = 2000
	m.textbox.ShowLineNumbers = false
	m.textbox.SetHeight(4)
	m.textbox.SetWidth(80)
	m.textbox.FocusedStyle.CursorLine = lipgloss.NewStyle()

	m.meStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8"))
	m.otherStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45f"))
	m.timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))

	return m
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForSnapshot())
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 2)

	m.viewport, cmds[0] = m.viewport.Update(msg)
	m.textbox, cmds[1] = m.textbox.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.unsub()
			m.conv.Close()
			return m, tea.Quit
		case "ctrl+s":
			content := strings.TrimSpace(m.textbox.Value())
			if content == "" {
				break
			}
			m.textbox.Reset()
			m.info = ""
			return m, tea.Batch(append(cmds, m.send(content))...)
		}
	case snapshotMsg:
		m.renderTranscript(msg)
		m.viewport.GotoBottom()
		return m, tea.Batch(append(cmds, m.waitForSnapshot())...)
	case sendResultMsg:
		if msg.err != nil {
			m.info = msg.err.Error()
		}
	}
	return m, tea.Batch(cmds...)
}

func (m ChatModel) View() string {
	var s string
	s = fmt.Sprintf("Chat with '%s'\n", m.partner)
	s += "_________________________\n"
	s += m.viewport.View() + "\n"
	s += "‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾‾\n\n"
	s += m.textbox.View() + "\n"
	s += "ctrl+s to send, esc to leave\n"
	if m.info != "" {
		s += fmt.Sprintf("Info: %s\n", m.info)
	}
	return s
}

// waitForSnapshot blocks on the next collection snapshot.
func (m ChatModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		msgs, ok := <-m.snapshots
		if !ok {
			return nil
		}
		return snapshotMsg(msgs)
	}
}

// send runs the façade send off the UI loop; the optimistic entry shows
// up through the snapshot channel before the command returns.
func (m ChatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: m.conv.Send(context.Background(), content)}
	}
}

func (m *ChatModel) renderTranscript(msgs []models.Message) {
	var b strings.Builder
	for _, msg := range msgs {
		style := m.otherStyle
		if msg.Sender == m.self {
			style = m.meStyle
		}
		b.WriteString(style.Render("@" + msg.Sender))
		if msg.Provisional() {
			b.WriteString(m.timeStyle.Render(" (sending...)"))
		} else if !msg.CreatedAt.IsZero() {
			b.WriteString(m.timeStyle.Render(" " + msg.CreatedAt.Local().Format("15:04")))
		}
		b.WriteByte('\n')
		if msg.Content != nil {
			b.WriteString(*msg.Content)
		}
		if msg.MediaURL != nil {
			b.WriteString(" [media] " + *msg.MediaURL)
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
}
