package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"happyfool/application"

	log "github.com/sirupsen/logrus"
)

const chatInboundStream = "happyfool_chat_inbound"

// DeliverySubmitter accepts raw chat deliveries for dispatch
type DeliverySubmitter interface {
	Submit(ctx context.Context, raw application.RawDelivery) bool
}

// ChatIngest consumes chat messages published on NATS by an external chat
// gateway and feeds them into the dispatch pipeline
type ChatIngest struct {
	client    *NATSClient
	subject   string
	submitter DeliverySubmitter
}

// NewChatIngest creates a new chat ingest for subject
func NewChatIngest(client *NATSClient, subject string, submitter DeliverySubmitter) *ChatIngest {
	return &ChatIngest{
		client:    client,
		subject:   subject,
		submitter: submitter,
	}
}

// Start ensures the inbound stream exists and subscribes to it. Deliveries
// are submitted with ctx until it is done.
func (i *ChatIngest) Start(ctx context.Context) error {
	if err := i.client.EnsureStream(chatInboundStream, []string{i.subject}, "Inbound chat messages"); err != nil {
		return err
	}
	return i.client.Subscribe(i.subject, func(data []byte) error {
		return i.handle(ctx, data)
	})
}

// handle decodes one message. Undecodable messages are acked and dropped;
// a message that could not be queued because we are shutting down is nak'd.
func (i *ChatIngest) handle(ctx context.Context, data []byte) error {
	var raw application.RawDelivery
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).WithField("size", len(data)).Warn("Dropping undecodable chat delivery")
		return nil
	}

	if !i.submitter.Submit(ctx, raw) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("delivery %s not queued: %w", raw.MessageID, err)
		}
		log.WithField("messageID", raw.MessageID).Debug("Chat delivery not queued")
	}
	return nil
}
