package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"happyfool/domain/entities"
)

// addCommandHandler implements !add
type addCommandHandler struct {
	registry        *CommandRegistry
	permission      entities.Role
	defaultCooldown time.Duration
}

func (h *addCommandHandler) Kind() HandlerKind { return KindSystem }

func (h *addCommandHandler) Permission() entities.Role { return h.permission }

func (h *addCommandHandler) Usage() string {
	return `!add !name "response" [permission=everyone] [cooldown=5] [cost=0]`
}

func (h *addCommandHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	spec, err := parseCommandSpec(inv.Args)
	if err != nil {
		return "", err
	}
	if spec.Body == nil {
		return "", errUsage
	}

	def := &entities.CommandDefinition{
		Name:       spec.Name,
		Body:       *spec.Body,
		Permission: entities.RoleEveryone,
		Cooldown:   h.defaultCooldown,
		Creator:    inv.Event.UserLogin,
	}
	entities.CommandChanges{
		Permission: spec.Permission,
		Cooldown:   spec.Cooldown,
		Cost:       spec.Cost,
	}.Apply(def)

	if err := h.registry.Add(ctx, def); err != nil {
		return "", err
	}
	return fmt.Sprintf("Command !%s added.", def.Name), nil
}

// editCommandHandler implements !edit
type editCommandHandler struct {
	registry   *CommandRegistry
	permission entities.Role
}

func (h *editCommandHandler) Kind() HandlerKind { return KindSystem }

func (h *editCommandHandler) Permission() entities.Role { return h.permission }

func (h *editCommandHandler) Usage() string {
	return `!edit !name ["new response"] [permission=...] [cooldown=...] [cost=...]`
}

func (h *editCommandHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	spec, err := parseCommandSpec(inv.Args)
	if err != nil {
		return "", err
	}

	changes := entities.CommandChanges{
		Body:       spec.Body,
		Permission: spec.Permission,
		Cooldown:   spec.Cooldown,
		Cost:       spec.Cost,
	}
	if changes.IsEmpty() {
		return "", errUsage
	}

	def, err := h.registry.Edit(ctx, spec.Name, changes, inv.Event.UserLogin)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Command !%s updated.", def.Name), nil
}

// deleteCommandHandler implements !delete
type deleteCommandHandler struct {
	registry   *CommandRegistry
	permission entities.Role
}

func (h *deleteCommandHandler) Kind() HandlerKind { return KindSystem }

func (h *deleteCommandHandler) Permission() entities.Role { return h.permission }

func (h *deleteCommandHandler) Usage() string { return "!delete !name" }

func (h *deleteCommandHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	name := entities.NormalizeCommandName(firstField(inv.Args))
	if name == "" {
		return "", errUsage
	}

	def, err := h.registry.Delete(ctx, name, inv.Event.UserLogin, inv.Now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Command !%s deleted.", def.Name), nil
}

// statCommandHandler implements !stat
type statCommandHandler struct {
	registry   *CommandRegistry
	permission entities.Role
	pointsName string
}

func (h *statCommandHandler) Kind() HandlerKind { return KindSystem }

func (h *statCommandHandler) Permission() entities.Role { return h.permission }

func (h *statCommandHandler) Usage() string { return "!stat !name" }

func (h *statCommandHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	name := entities.NormalizeCommandName(firstField(inv.Args))
	if name == "" {
		return "", errUsage
	}

	def, err := h.registry.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("!%s was created by %s and used %d times. Permission: %s, cooldown: %s, cost: %d %s.",
		def.Name, def.Creator, def.UsageCount, def.Permission, def.Cooldown, def.Cost, h.pointsName), nil
}

// listCommandsHandler implements !commands
type listCommandsHandler struct {
	registry *CommandRegistry
}

func (h *listCommandsHandler) Kind() HandlerKind { return KindSystem }

func (h *listCommandsHandler) Permission() entities.Role { return entities.RoleEveryone }

func (h *listCommandsHandler) Handle(ctx context.Context, inv *Invocation) (string, error) {
	defs, err := h.registry.List(ctx)
	if err != nil {
		return "", err
	}
	if len(defs) == 0 {
		return "No custom commands yet.", nil
	}

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if inv.Event.UserRole.Satisfies(def.Permission) {
			names = append(names, "!"+def.Name)
		}
	}
	if len(names) == 0 {
		return "No custom commands available to you.", nil
	}
	return "Commands: " + strings.Join(names, ", "), nil
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
