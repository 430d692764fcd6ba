package application

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"happyfool/domain/entities"

	log "github.com/sirupsen/logrus"
)

// RawDelivery is a chat message as handed over by a chat transport
type RawDelivery struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	UserLogin string    `json:"user_login"`
	Role      string    `json:"role"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type seenID struct {
	id     string
	seenAt time.Time
}

// Normalizer turns raw deliveries into chat events and drops message ids seen
// within a bounded window. The window is bounded by both size and age.
type Normalizer struct {
	size int
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	order *list.List
	seen  map[string]*list.Element
}

// NewNormalizer creates a normalizer remembering up to size ids for at most ttl
func NewNormalizer(size int, ttl time.Duration) *Normalizer {
	if size <= 0 {
		size = 1
	}
	return &Normalizer{
		size:  size,
		ttl:   ttl,
		now:   time.Now,
		order: list.New(),
		seen:  make(map[string]*list.Element),
	}
}

// Normalize returns the chat event for raw, or false if it must be dropped
func (n *Normalizer) Normalize(raw RawDelivery) (*entities.ChatEvent, bool) {
	messageID := strings.TrimSpace(raw.MessageID)
	userID := strings.TrimSpace(raw.UserID)
	if messageID == "" || userID == "" {
		log.WithFields(log.Fields{
			"messageID": raw.MessageID,
			"userID":    raw.UserID,
		}).Warn("Dropping delivery without message or user id")
		return nil, false
	}

	now := n.now()
	if !n.remember(messageID, now) {
		log.WithField("messageID", messageID).Debug("Dropping duplicate delivery")
		return nil, false
	}

	role, err := entities.ParseRole(raw.Role)
	if err != nil {
		role = entities.RoleEveryone
	}

	login := strings.TrimSpace(raw.UserLogin)
	if login == "" {
		login = userID
	}

	timestamp := raw.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}

	return &entities.ChatEvent{
		MessageID: messageID,
		UserID:    userID,
		UserLogin: login,
		UserRole:  role,
		Channel:   strings.TrimSpace(raw.Channel),
		Text:      strings.TrimSpace(raw.Text),
		Timestamp: timestamp,
	}, true
}

// remember records id and returns false if it was already in the window
func (n *Normalizer) remember(id string, now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.evict(now)
	if _, ok := n.seen[id]; ok {
		return false
	}

	n.seen[id] = n.order.PushBack(seenID{id: id, seenAt: now})
	for n.order.Len() > n.size {
		n.removeFront()
	}
	return true
}

func (n *Normalizer) evict(now time.Time) {
	if n.ttl <= 0 {
		return
	}
	for front := n.order.Front(); front != nil; front = n.order.Front() {
		if now.Sub(front.Value.(seenID).seenAt) < n.ttl {
			return
		}
		n.removeFront()
	}
}

func (n *Normalizer) removeFront() {
	front := n.order.Front()
	n.order.Remove(front)
	delete(n.seen, front.Value.(seenID).id)
}

// WindowLen returns the number of ids currently remembered
func (n *Normalizer) WindowLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.order.Len()
}
