package application

import (
	"context"
	"fmt"
	"strings"

	"happyfool/domain/entities"
	"happyfool/domain/services"
	"happyfool/domain/utils"
)

// pointsHandler shows balances and lets the broadcaster adjust them
type pointsHandler struct {
	ledger     *LedgerStore
	executor   *TransactionExecutor
	ranks      *services.RankTable
	pointsName string
}

func (h *pointsHandler) Kind() HandlerKind { return KindSystem }

func (h *pointsHandler) Permission() entities.Role { return entities.RoleEveryone }

func (h *pointsHandler) Usage() string {
	return fmt.Sprintf("!%s [user] | !%s add <user> <amount> | !%s remove <user> <amount>", h.pointsName, h.pointsName, h.pointsName)
}

func (h *pointsHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	fields := strings.Fields(inv.Args)
	if len(fields) == 0 {
		return h.describe(inv.Account), nil
	}

	switch sub := strings.ToLower(fields[0]); sub {
	case "add", "remove":
		if !inv.Event.UserRole.Satisfies(entities.RoleBroadcaster) {
			return "", &entities.PermissionError{
				Command:  inv.Name + " " + sub,
				Required: entities.RoleBroadcaster,
				Actual:   inv.Event.UserRole,
			}
		}
		if len(fields) != 3 {
			return "", errUsage
		}
		amount, ok := parseAmount(fields[2])
		if !ok {
			return "", errUsage
		}
		return h.adjust(ctx, inv, sub, strings.TrimPrefix(fields[1], "@"), amount)
	default:
		target, err := h.ledger.FindByLogin(ctx, strings.TrimPrefix(fields[0], "@"))
		if err != nil {
			return "", err
		}
		return h.describe(target), nil
	}
}

func (h *pointsHandler) adjust(ctx context.Context, inv *Invocation, sub, login string, amount int64) (string, error) {
	target, err := h.ledger.FindByLogin(ctx, login)
	if err != nil {
		return "", err
	}

	metadata := map[string]any{
		"actor":  inv.Event.UserLogin,
		"action": sub,
	}

	var result *services.MutationResult
	if sub == "add" {
		result, err = h.executor.Credit(ctx, target.ID, amount, entities.ReasonAdminAdjust, inv.Event.MessageID, metadata)
	} else {
		result, err = h.executor.DebitClamped(ctx, target.ID, amount, entities.ReasonAdminAdjust, inv.Event.MessageID, metadata)
	}
	if err != nil {
		return "", err
	}

	var moved int64
	if result.Transaction != nil {
		moved = result.Transaction.Delta
		if moved < 0 {
			moved = -moved
		}
	}

	if sub == "add" {
		return fmt.Sprintf("Gave %d %s to %s, who now has %d.", moved, h.pointsName, target.Login, result.Account.Balance), nil
	}
	return fmt.Sprintf("Took %d %s from %s, who now has %d.", moved, h.pointsName, target.Login, result.Account.Balance), nil
}

func (h *pointsHandler) describe(account *entities.Account) string {
	text := fmt.Sprintf("%s has %s %s", account.Login, utils.FormatShortNotation(account.Balance), h.pointsName)
	if rank := h.ranks.Of(account.Balance); rank != "" {
		text += fmt.Sprintf(" [%s]", rank)
	}
	return text + fmt.Sprintf(" and %s hours watched.", utils.FormatHours(account.MinutesWatched))
}
