package application

import (
	"sync"
	"time"
)

// gameCooldowns tracks when each user last played each game. A claim is
// owned by the message that made it, so a retried or replayed message is
// never refused by its own claim.
type gameCooldowns struct {
	window time.Duration

	mu     sync.Mutex
	claims map[string]gameClaim
}

type gameClaim struct {
	sourceID string
	at       time.Time
}

// sweepThreshold is the claim count above which expired claims are pruned
const sweepThreshold = 1024

func newGameCooldowns(window time.Duration) *gameCooldowns {
	return &gameCooldowns{
		window: window,
		claims: make(map[string]gameClaim),
	}
}

func gameCooldownKey(game, userID string) string {
	return game + "\x00" + userID
}

// claim records a play of game by userID at now. It returns the time left
// when the user is still on cooldown from a different message.
func (c *gameCooldowns) claim(game, userID, sourceID string, now time.Time) (time.Duration, bool) {
	if c == nil || c.window <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := gameCooldownKey(game, userID)
	if prev, ok := c.claims[key]; ok && prev.sourceID != sourceID {
		if elapsed := now.Sub(prev.at); elapsed < c.window {
			return c.window - elapsed, false
		}
	}

	if len(c.claims) >= sweepThreshold {
		c.sweep(now)
	}
	c.claims[key] = gameClaim{sourceID: sourceID, at: now}
	return 0, true
}

// release drops the claim made by sourceID, if it is still the current one
func (c *gameCooldowns) release(game, userID, sourceID string) {
	if c == nil || c.window <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := gameCooldownKey(game, userID)
	if prev, ok := c.claims[key]; ok && prev.sourceID == sourceID {
		delete(c.claims, key)
	}
}

func (c *gameCooldowns) sweep(now time.Time) {
	for key, claim := range c.claims {
		if now.Sub(claim.at) >= c.window {
			delete(c.claims, key)
		}
	}
}
