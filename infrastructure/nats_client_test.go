package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"happyfool/application"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupNATS starts a JetStream enabled NATS server and returns its URL
func setupNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
			Labels: map[string]string{
				"test":      "happyfool-infrastructure",
				"test-name": t.Name(),
				"cleanup":   "auto",
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate NATS container: %v", err)
		}
	})

	url, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	return url
}

func TestNATSClient_ChatRoundTrip(t *testing.T) {
	url := setupNATS(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewNATSClient(url)
	require.NoError(t, client.Connect(ctx))
	defer client.Close()
	assert.True(t, client.IsConnected())

	submitter := &recordingSubmitter{accept: true}
	ingest := NewChatIngest(client, "chat.inbound", submitter)
	require.NoError(t, ingest.Start(ctx))

	raw := application.RawDelivery{MessageID: "msg-1", UserID: "1001", UserLogin: "alice", Text: "!points"}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, client.Publish(ctx, "chat.inbound", data))

	assert.Eventually(t, func() bool {
		return len(submitter.deliveries()) == 1
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "msg-1", submitter.deliveries()[0].MessageID)

	t.Run("replies land on the outbound stream", func(t *testing.T) {
		require.NoError(t, EnsureChatOutboundStream(client, "chat.outbound"))

		watcher, err := nats.Connect(url)
		require.NoError(t, err)
		defer watcher.Close()
		sub, err := watcher.SubscribeSync("chat.outbound.>")
		require.NoError(t, err)

		sender := NewNATSChatSender(client, "chat.outbound")
		require.NoError(t, sender.Send(ctx, "#happyfool", "alice has 100 points"))

		msg, err := sub.NextMsg(5 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, "chat.outbound.happyfool", msg.Subject)
	})

	t.Run("domain events", func(t *testing.T) {
		mapper := NewEventSubjectMapper()
		require.NoError(t, EnsureDomainEventStream(client, mapper))
		require.NoError(t, EnsureDomainEventStream(client, mapper), "ensuring twice is fine")
	})
}
