package chat

import (
	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

// Conversation is the ordered message list shown to the user. During a turn
// the trailing assistant message grows as deltas arrive.
type Conversation struct {
	messages     []models.ChatMessage
	assistantIdx int
	soFar        string
	failed       bool
}

func NewConversation(history ...models.ChatMessage) *Conversation {
	c := &Conversation{assistantIdx: -1}
	c.messages = append(c.messages, history...)
	return c
}

// BeginTurn appends the user's message and returns the history to send
func (c *Conversation) BeginTurn(userText string) []models.ChatMessage {
	c.messages = append(c.messages, models.ChatMessage{Role: models.ChatRoleUser, Content: userText})
	c.assistantIdx = -1
	c.soFar = ""
	c.failed = false
	return c.Messages()
}

// Apply updates the conversation with one assembler event
func (c *Conversation) Apply(ev Event) {
	switch ev.Kind {
	case EventDelta:
		c.soFar += ev.Text
		if c.assistantIdx >= 0 {
			c.messages[c.assistantIdx].Content = c.soFar
			return
		}
		c.messages = append(c.messages, models.ChatMessage{Role: models.ChatRoleAssistant, Content: c.soFar})
		c.assistantIdx = len(c.messages) - 1
	case EventError:
		if c.soFar != "" || c.failed {
			return
		}
		c.failed = true
		c.messages = append(c.messages, models.ChatMessage{Role: models.ChatRoleAssistant, Content: FallbackMessage})
		c.assistantIdx = len(c.messages) - 1
	}
}

// Messages returns a copy of the current list
func (c *Conversation) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Last() (models.ChatMessage, bool) {
	if len(c.messages) == 0 {
		return models.ChatMessage{}, false
	}
	return c.messages[len(c.messages)-1], true
}
