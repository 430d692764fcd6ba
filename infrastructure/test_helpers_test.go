package infrastructure

import (
	"context"
	"sync"

	"happyfool/domain/events"
)

// recordingPublisher collects published events
type recordingPublisher struct {
	mu              sync.Mutex
	PublishedEvents []events.Event
	PublishError    error
}

func (m *recordingPublisher) Publish(event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func (m *recordingPublisher) events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.PublishedEvents...)
}

type publishedMessage struct {
	subject string
	data    []byte
}

// recordingMessagePublisher collects raw NATS publishes
type recordingMessagePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (m *recordingMessagePublisher) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{subject: subject, data: data})
	return nil
}
