package application

import (
	"context"
	"strings"

	"happyfool/domain/entities"
	"happyfool/domain/services"
)

// customCommand runs a user-defined command: permission, cost precheck,
// cooldown claim, cost debit, then the rendered body
type customCommand struct {
	def        *entities.CommandDefinition
	dispatcher *Dispatcher
}

func (c *customCommand) Kind() HandlerKind { return KindCustom }

func (c *customCommand) Permission() entities.Role { return c.def.Permission }

func (c *customCommand) Handle(ctx context.Context, inv *Invocation) (string, error) {
	if c.def.Cost > 0 && !inv.Account.CanAfford(c.def.Cost) {
		return "", &entities.InsufficientFundsError{
			AccountID: inv.Account.ID,
			Balance:   inv.Account.Balance,
			Required:  c.def.Cost,
		}
	}

	def, err := c.dispatcher.registry.TryInvoke(ctx, inv.Name, inv.Event.Channel, inv.Now)
	if err != nil {
		return "", err
	}

	if def.Cost > 0 {
		_, err := c.dispatcher.executor.Debit(ctx, inv.Account.ID, def.Cost, entities.ReasonCommandCost, inv.Event.MessageID, map[string]any{
			"command": def.Name,
			"channel": inv.Event.Channel,
		})
		if err != nil {
			return "", err
		}
	}

	target, _, _ := strings.Cut(inv.Args, " ")
	return services.RenderTemplate(def.Body, services.TemplateVars{
		User:    inv.Event.UserLogin,
		ToUser:  target,
		Count:   def.UsageCount,
		Channel: inv.Event.Channel,
	}), nil
}
