package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"happyfool/application"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	accept   bool
	received []application.RawDelivery
}

func (s *recordingSubmitter) Submit(_ context.Context, raw application.RawDelivery) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, raw)
	return s.accept
}

func (s *recordingSubmitter) deliveries() []application.RawDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]application.RawDelivery(nil), s.received...)
}

func TestChatIngest_Handle(t *testing.T) {
	ctx := context.Background()
	submitter := &recordingSubmitter{accept: true}
	ingest := NewChatIngest(nil, "chat.inbound", submitter)

	raw := application.RawDelivery{
		MessageID: "msg-1",
		UserID:    "1001",
		UserLogin: "alice",
		Role:      "subscriber",
		Channel:   "#happyfool",
		Text:      "!gamble 50",
		Timestamp: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	require.NoError(t, ingest.handle(ctx, data))
	require.Len(t, submitter.deliveries(), 1)
	assert.Equal(t, raw, submitter.deliveries()[0])

	t.Run("undecodable message is acked", func(t *testing.T) {
		assert.NoError(t, ingest.handle(ctx, []byte("{not json")))
		assert.Len(t, submitter.deliveries(), 1)
	})

	t.Run("dropped duplicate is acked", func(t *testing.T) {
		submitter.accept = false
		assert.NoError(t, ingest.handle(ctx, data))
	})

	t.Run("shutdown naks", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, ingest.handle(cancelled, data), context.Canceled)
	})
}

func TestNATSChatSender_Send(t *testing.T) {
	client := &recordingMessagePublisher{}
	sender := NewNATSChatSender(client, "chat.outbound")

	require.NoError(t, sender.Send(context.Background(), "#happy.fool", "Hi there!"))
	require.NoError(t, sender.Send(context.Background(), "", "hello"))

	require.Len(t, client.messages, 2)
	assert.Equal(t, "chat.outbound.happy_fool", client.messages[0].subject)
	assert.Equal(t, "chat.outbound.default", client.messages[1].subject)

	var msg outboundMessage
	require.NoError(t, json.Unmarshal(client.messages[0].data, &msg))
	assert.Equal(t, "#happy.fool", msg.Channel)
	assert.Equal(t, "Hi there!", msg.Text)
	assert.False(t, msg.SentAt.IsZero())
}
