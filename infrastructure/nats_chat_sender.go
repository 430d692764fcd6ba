package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const chatOutboundStream = "happyfool_chat_outbound"

// outboundMessage is the wire format of a reply for the chat gateway
type outboundMessage struct {
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

// NATSChatSender publishes replies on a per-channel NATS subject for an
// external chat gateway to deliver
type NATSChatSender struct {
	publisher     MessagePublisher
	subjectPrefix string
}

// NewNATSChatSender creates a sender publishing under subjectPrefix
func NewNATSChatSender(publisher MessagePublisher, subjectPrefix string) *NATSChatSender {
	return &NATSChatSender{
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
	}
}

// EnsureChatOutboundStream ensures the stream holding outbound replies exists
func EnsureChatOutboundStream(client *NATSClient, subjectPrefix string) error {
	return client.EnsureStream(chatOutboundStream, []string{subjectPrefix + ".>"}, "Outbound chat replies")
}

// Send publishes text for channel
func (s *NATSChatSender) Send(ctx context.Context, channel, text string) error {
	data, err := json.Marshal(outboundMessage{Channel: channel, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal chat reply: %w", err)
	}
	return s.publisher.Publish(ctx, s.subject(channel), data)
}

// subject maps a channel name to a subject token
func (s *NATSChatSender) subject(channel string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, strings.TrimPrefix(channel, "#"))
	if token == "" {
		token = "default"
	}
	return s.subjectPrefix + "." + token
}
