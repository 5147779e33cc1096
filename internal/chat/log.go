package chat

import (
	"sync"

	"github.com/financeai/backend/internal/models"
)

// Greeting is the assistant message every new conversation starts with.
const Greeting = "Hello! I'm your AI Financial Agent. I can analyze your financial documents, provide detailed summaries, and help you understand your financial position. Upload your documents or ask me any financial questions!"

// Log is the append-only conversation transcript plus the single-flight
// thinking flag for query jobs. Messages are never edited or removed once
// appended.
type Log struct {
	mu       sync.Mutex
	messages []models.Message
	thinking bool
}

// NewLog creates a log seeded with the greeting message.
func NewLog() *Log {
	return &Log{
		messages: []models.Message{models.NewMessage(models.RoleAssistant, Greeting)},
	}
}

// Append adds a message of the given role.
func (l *Log) Append(role models.Role, text string) models.Message {
	msg := models.NewMessage(role, text)
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	return msg
}

// AppendAssistant adds an assistant message.
func (l *Log) AppendAssistant(text string) models.Message {
	return l.Append(models.RoleAssistant, text)
}

// Messages returns a snapshot copy of the transcript in append order.
func (l *Log) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Thinking reports whether a query is currently in flight.
func (l *Log) Thinking() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thinking
}

// TryBeginThinking atomically claims the thinking flag. It returns false
// when a query is already in flight, in which case the caller must reject
// the new query.
func (l *Log) TryBeginThinking() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.thinking {
		return false
	}
	l.thinking = true
	return true
}

// EndThinking releases the thinking flag. Safe to call when it is already
// clear.
func (l *Log) EndThinking() {
	l.mu.Lock()
	l.thinking = false
	l.mu.Unlock()
}
