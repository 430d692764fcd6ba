package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"happyfool/domain/entities"
	"happyfool/domain/games"

	log "github.com/sirupsen/logrus"
)

// Raffle collects chatters who type the key word while a raffle is open and
// picks winners among them. Picks are derived from the picking message id,
// the same way game outcomes are, so they can be audited afterwards.
type Raffle struct {
	salt []byte

	mu             sync.Mutex
	open           bool
	subscriberOnly bool
	keyword        string
	participants   []string
	joined         map[string]bool
	picked         []string
	lastPickSource string
	lastPick       string
}

// NewRaffle creates a closed raffle
func NewRaffle(salt []byte) *Raffle {
	return &Raffle{salt: salt, joined: make(map[string]bool)}
}

// Start opens a new raffle for keyword, dropping every earlier participant
func (r *Raffle) Start(keyword string, subscriberOnly bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.open = true
	r.subscriberOnly = subscriberOnly
	r.keyword = keyword
	r.participants = nil
	r.joined = make(map[string]bool)
	r.picked = nil
	r.lastPickSource = ""
	r.lastPick = ""
}

// Stop closes the raffle to new participants. Picking still works.
func (r *Raffle) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
}

// Observe adds the sender of ev when its text is the key word
func (r *Raffle) Observe(ev *entities.ChatEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open || strings.TrimSpace(ev.Text) != r.keyword {
		return false
	}
	if r.subscriberOnly && !ev.UserRole.Satisfies(entities.RoleSubscriber) {
		return false
	}
	if r.joined[ev.UserLogin] {
		return false
	}

	r.joined[ev.UserLogin] = true
	r.participants = append(r.participants, ev.UserLogin)
	log.WithFields(log.Fields{
		"login":        ev.UserLogin,
		"participants": len(r.participants),
	}).Debug("Raffle participant joined")
	return true
}

// Pick removes and returns one participant. The same sourceID always
// returns the same pick. It returns false when nobody is left.
func (r *Raffle) Pick(sourceID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sourceID != "" && sourceID == r.lastPickSource {
		return r.lastPick, true
	}
	if len(r.participants) == 0 {
		return "", false
	}

	seed := games.DeriveSeed(r.salt, sourceID)
	idx := int(seed % uint64(len(r.participants)))
	winner := r.participants[idx]

	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)
	r.picked = append(r.picked, winner)
	r.lastPickSource = sourceID
	r.lastPick = winner
	return winner, true
}

// Participants returns the logins still in the draw
func (r *Raffle) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.participants...)
}

// raffleHandler implements !raffle start|startsub|stop|pick
type raffleHandler struct {
	raffle     *Raffle
	permission entities.Role
}

func (h *raffleHandler) Kind() HandlerKind { return KindSystem }

func (h *raffleHandler) Permission() entities.Role { return h.permission }

func (h *raffleHandler) Usage() string {
	return "!raffle <start|startsub> <key word> | !raffle stop | !raffle pick"
}

func (h *raffleHandler) Handle(_ context.Context, inv *Invocation) (string, error) {
	fields := strings.Fields(inv.Args)
	if len(fields) == 0 {
		return "", errUsage
	}

	switch strings.ToLower(fields[0]) {
	case "start", "startsub":
		if len(fields) < 2 {
			return "", errUsage
		}
		subscriberOnly := strings.EqualFold(fields[0], "startsub")
		h.raffle.Start(fields[1], subscriberOnly)
		if subscriberOnly {
			return fmt.Sprintf("Subscriber only raffle started. Key word: %s", fields[1]), nil
		}
		return fmt.Sprintf("Raffle started. Key word: %s", fields[1]), nil
	case "stop":
		h.raffle.Stop()
		return "Raffle stopped.", nil
	case "pick":
		winner, ok := h.raffle.Pick(inv.Event.MessageID)
		if !ok {
			return "No participants left in this raffle!", nil
		}
		return fmt.Sprintf("Picked a participant from the raffle: %s.", winner), nil
	default:
		return "", errUsage
	}
}
