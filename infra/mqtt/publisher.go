package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/blackout/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// Message is a payload recorded by MockPublisher.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Messages   []Message
	FailTopics map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTopics: make(map[string]bool)}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish failed")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.Messages = append(m.Messages, Message{Topic: topic, Payload: cp})
	return nil
}

// Topic returns the payloads published to topic in order.
func (m *MockPublisher) Topic(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, msg := range m.Messages {
		if msg.Topic == topic {
			out = append(out, msg.Payload)
		}
	}
	return out
}
