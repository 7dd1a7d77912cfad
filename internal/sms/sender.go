package sms

import (
	"context"
	"fmt"
	"sync"
)

// Sender delivers one outbound text and returns the provider's message id.
// Delivery is fire-and-forget from the dispatch core's perspective: callers
// log a SendError but never retry.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type SendError struct {
	To         string
	StatusCode int
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sms: send to %s failed with status %d", e.To, e.StatusCode)
}

// OutboundMessage is a record of a send captured by the memory sender.
type OutboundMessage struct {
	To   string
	Body string
}

// MemorySender records sends in memory for tests and local console use.
type MemorySender struct {
	mu   sync.Mutex
	sent []OutboundMessage
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (m *MemorySender) Send(ctx context.Context, to, body string) (string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, OutboundMessage{To: to, Body: body})
	return fmt.Sprintf("mem-%d", len(m.sent)), nil
}

func (m *MemorySender) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.sent...)
}
