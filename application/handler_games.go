package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"happyfool/domain/entities"
	"happyfool/domain/events"
	"happyfool/domain/games"
	"happyfool/domain/services"
)

// gameHandler stakes points on one of the game engine's games. The outcome
// and the net balance change are recorded as a single transaction keyed by
// the message id.
type gameHandler struct {
	game       games.Game
	engine     *games.Engine
	executor   *TransactionExecutor
	salt       []byte
	minimumBet int64
	allInWord  string
	pointsName string
	cooldowns  *gameCooldowns
}

// playRecord is what a game did, either just now or on a replayed message
type playRecord struct {
	stake      int64
	multiplier int64
	detail     string
	net        int64
}

func (h *gameHandler) Kind() HandlerKind { return KindGame }

func (h *gameHandler) Permission() entities.Role { return entities.RoleEveryone }

func (h *gameHandler) Usage() string {
	return fmt.Sprintf("!%s <amount|%s>", h.game, h.allInWord)
}

func (h *gameHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	token := firstField(inv.Args)
	if token == "" {
		return "", &entities.InvalidStakeError{
			Minimum: h.minimumBet,
			Balance: inv.Account.Balance,
			Reason:  "no stake given",
		}
	}

	seed := games.DeriveSeed(h.salt, inv.Event.MessageID)
	var played *playRecord
	claimed := false

	plan := func(account *entities.Account) (*services.Mutation, error) {
		stake, err := h.resolveStake(token, account.Balance)
		if err != nil {
			return nil, err
		}

		remaining, ok := h.cooldowns.claim(string(h.game), inv.Event.UserID, inv.Event.MessageID, inv.Now)
		if !ok {
			return nil, &entities.CooldownError{Command: inv.Name, Channel: inv.Event.Channel, Remaining: remaining}
		}
		claimed = true

		outcome, err := h.engine.Play(h.game, stake, seed)
		if err != nil {
			return nil, err
		}

		net := outcome.Net(stake)
		played = &playRecord{stake: stake, multiplier: outcome.Multiplier, detail: outcome.Detail, net: net}

		reason := entities.ReasonGambleStake
		if net > 0 {
			reason = entities.ReasonGamblePayout
		}

		return &services.Mutation{
			Delta:  net,
			Reason: reason,
			Metadata: map[string]any{
				"game":       string(h.game),
				"stake":      stake,
				"multiplier": outcome.Multiplier,
				"detail":     outcome.Detail,
				"seed":       strconv.FormatUint(seed, 16),
			},
			Events: []events.Event{events.GamePlayedEvent{
				AccountID:  account.ID,
				MessageID:  inv.Event.MessageID,
				Game:       string(h.game),
				Stake:      stake,
				Multiplier: outcome.Multiplier,
				Net:        net,
				Detail:     outcome.Detail,
			}},
		}, nil
	}

	result, err := h.executor.Execute(ctx, MutationRequest{
		AccountID: inv.Account.ID,
		SourceID:  inv.Event.MessageID,
		Plan:      plan,
	})
	if err != nil {
		if claimed {
			h.cooldowns.release(string(h.game), inv.Event.UserID, inv.Event.MessageID)
		}
		return "", err
	}

	if result.Replayed {
		played = replayedPlay(result.Transaction)
	}
	return h.render(inv.Event.UserLogin, played, result.Account.Balance), nil
}

// resolveStake turns the stake token into an amount valid for balance
func (h *gameHandler) resolveStake(token string, balance int64) (int64, error) {
	var stake int64
	if h.allInWord != "" && strings.EqualFold(token, h.allInWord) {
		stake = balance
	} else {
		n, err := strconv.ParseInt(strings.ReplaceAll(token, ",", ""), 10, 64)
		if err != nil {
			return 0, &entities.InvalidStakeError{Minimum: h.minimumBet, Balance: balance, Reason: "not a number"}
		}
		stake = n
	}

	invalid := &entities.InvalidStakeError{Stake: stake, Minimum: h.minimumBet, Balance: balance}
	switch {
	case stake <= 0:
		invalid.Reason = "must be positive"
	case stake < h.minimumBet:
		invalid.Reason = "below the minimum bet"
	case stake > balance:
		invalid.Reason = "exceeds balance"
	default:
		return stake, nil
	}
	return 0, invalid
}

func replayedPlay(tx *entities.Transaction) *playRecord {
	stake, _ := tx.MetadataInt("stake")
	multiplier, _ := tx.MetadataInt("multiplier")
	return &playRecord{
		stake:      stake,
		multiplier: multiplier,
		detail:     tx.MetadataString("detail"),
		net:        tx.Delta,
	}
}

func (h *gameHandler) render(login string, played *playRecord, balance int64) string {
	switch {
	case played.net > 0:
		return fmt.Sprintf("[%s] %s won %d %s (x%d) and now has %d %s.",
			played.detail, login, played.net, h.pointsName, played.multiplier, balance, h.pointsName)
	case played.net < 0:
		return fmt.Sprintf("[%s] %s lost %d %s and now has %d %s.",
			played.detail, login, -played.net, h.pointsName, balance, h.pointsName)
	default:
		return fmt.Sprintf("[%s] %s broke even with %d %s.", played.detail, login, balance, h.pointsName)
	}
}
