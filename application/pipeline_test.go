package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	channel string
	text    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *recordingSender) Send(_ context.Context, channel, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{channel: channel, text: text})
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func TestPipeline_DispatchesAndReplies(t *testing.T) {
	app := newTestApp(t)
	app.fund(t, "1001", "alice", 100)

	sender := &recordingSender{}
	pipeline := NewPipeline(NewNormalizer(100, time.Minute), app.dispatcher, sender, 2, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pipeline.Run(ctx) }()

	points := delivery("m1")
	points.Role = "everyone"
	assert.True(t, pipeline.Submit(ctx, points))
	assert.False(t, pipeline.Submit(ctx, points), "duplicate delivery is dropped")

	chatter := delivery("m2")
	chatter.Text = "good game"
	assert.True(t, pipeline.Submit(ctx, chatter))

	stranger := delivery("m3")
	stranger.UserID = "2002"
	stranger.UserLogin = "bob"
	stranger.Text = "!points alice"
	assert.True(t, pipeline.Submit(ctx, stranger))

	assert.Eventually(t, func() bool { return len(sender.messages()) == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	for _, msg := range sender.messages() {
		assert.Equal(t, "#happyfool", msg.channel)
		assert.Contains(t, msg.text, "alice has 100 points")
	}
}

func TestPipeline_DispatchesAcceptedEventsOnShutdown(t *testing.T) {
	app := newTestApp(t)
	app.fund(t, "1001", "alice", 100)

	sender := &recordingSender{}
	pipeline := NewPipeline(NewNormalizer(100, time.Minute), app.dispatcher, sender, 2, 64, nil)

	accepted := 0
	for i := 0; i < 50; i++ {
		if pipeline.Submit(context.Background(), delivery(fmt.Sprintf("m%d", i))) {
			accepted++
		}
	}
	require.Equal(t, 50, accepted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pipeline.Run(ctx))

	assert.Len(t, sender.messages(), accepted)
	assert.False(t, pipeline.Submit(context.Background(), delivery("late")), "stopped pipeline accepts nothing")
}

func TestPipeline_ShardIsStablePerUser(t *testing.T) {
	pipeline := NewPipeline(NewNormalizer(1, time.Minute), nil, nil, 4, 1, nil)
	first := pipeline.shard("1001")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, pipeline.shard("1001"))
	}
	assert.Less(t, first, 4)
}
