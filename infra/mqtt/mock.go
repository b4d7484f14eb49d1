package mqtt

import (
	"fmt"
	"strings"
	"sync"
)

// MockBus is an in-memory Bus for tests. Published messages are recorded and
// delivered synchronously to matching subscribers.
type MockBus struct {
	mu        sync.Mutex
	subs      map[string]func(topic string, payload []byte)
	published map[string][][]byte
	FailTopic string // Publish returns an error for this topic
}

// NewMockBus creates an empty MockBus.
func NewMockBus() *MockBus {
	return &MockBus{
		subs:      make(map[string]func(string, []byte)),
		published: make(map[string][][]byte),
	}
}

// Publish records the message and delivers it to matching subscribers.
func (m *MockBus) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	if topic == m.FailTopic && m.FailTopic != "" {
		m.mu.Unlock()
		return fmt.Errorf("publish to %s failed", topic)
	}
	m.published[topic] = append(m.published[topic], payload)
	var handlers []func(string, []byte)
	for filter, h := range m.subs {
		if topicMatches(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

// Subscribe registers a handler for the topic filter. Only the "+" single
// level wildcard is supported.
func (m *MockBus) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = handler
	return nil
}

// Close is a no-op.
func (m *MockBus) Close() {}

// Published returns the payloads published to a topic.
func (m *MockBus) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.published[topic]))
	copy(out, m.published[topic])
	return out
}

func topicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	if len(fp) != len(tp) {
		return false
	}
	for i := range fp {
		if fp[i] != "+" && fp[i] != tp[i] {
			return false
		}
	}
	return true
}
