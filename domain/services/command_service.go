package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"
	"happyfool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// CommandService applies command registry rules inside one unit of work
type CommandService struct {
	commandRepo    interfaces.CommandRepository
	eventPublisher interfaces.EventPublisher
}

// NewCommandService creates a new command service bound to unit of work repositories
func NewCommandService(commandRepo interfaces.CommandRepository, eventPublisher interfaces.EventPublisher) *CommandService {
	return &CommandService{
		commandRepo:    commandRepo,
		eventPublisher: eventPublisher,
	}
}

// ValidateDefinition normalizes the name and checks the fields of a new definition
func ValidateDefinition(def *entities.CommandDefinition) error {
	def.Name = entities.NormalizeCommandName(def.Name)
	def.Body = strings.TrimSpace(def.Body)

	switch {
	case def.Name == "":
		return fmt.Errorf("%w: name is empty", entities.ErrInvalidCommand)
	case def.Body == "":
		return fmt.Errorf("%w: response is empty", entities.ErrInvalidCommand)
	case def.Cooldown < 0:
		return fmt.Errorf("%w: cooldown is negative", entities.ErrInvalidCommand)
	case def.Cost < 0:
		return fmt.Errorf("%w: cost is negative", entities.ErrInvalidCommand)
	case def.Permission < entities.RoleEveryone || def.Permission > entities.RoleBroadcaster:
		return fmt.Errorf("%w: unknown permission", entities.ErrInvalidCommand)
	}
	return nil
}

// Add stores a new definition. Names are unique among live definitions.
func (s *CommandService) Add(ctx context.Context, def *entities.CommandDefinition) error {
	if err := ValidateDefinition(def); err != nil {
		return err
	}

	existing, err := s.commandRepo.GetLive(ctx, def.Name)
	if err != nil {
		return entities.StorageError("get command", err)
	}
	if existing != nil {
		return fmt.Errorf("!%s: %w", def.Name, entities.ErrDuplicateCommand)
	}

	if err := s.commandRepo.Create(ctx, def); err != nil {
		if isDomainError(err) {
			return err
		}
		return entities.StorageError("create command", err)
	}

	s.publish(def, events.CommandActionAdded, def.Creator)
	return nil
}

// Edit replaces the given fields of a live definition
func (s *CommandService) Edit(ctx context.Context, name string, changes entities.CommandChanges, actor string) (*entities.CommandDefinition, error) {
	def, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return def, nil
	}

	changes.Apply(def)
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}

	if err := s.commandRepo.Update(ctx, def); err != nil {
		return nil, entities.StorageError("update command", err)
	}

	s.publish(def, events.CommandActionEdited, actor)
	return def, nil
}

// Delete tombstones a live definition
func (s *CommandService) Delete(ctx context.Context, name, actor string, at time.Time) (*entities.CommandDefinition, error) {
	def, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.commandRepo.Tombstone(ctx, def.ID, at); err != nil {
		return nil, entities.StorageError("tombstone command", err)
	}
	def.DeletedAt = &at

	s.publish(def, events.CommandActionDeleted, actor)
	return def, nil
}

// Resolve returns the live definition for name
func (s *CommandService) Resolve(ctx context.Context, name string) (*entities.CommandDefinition, error) {
	normalized := entities.NormalizeCommandName(name)
	def, err := s.commandRepo.GetLive(ctx, normalized)
	if err != nil {
		return nil, entities.StorageError("get command", err)
	}
	if def == nil {
		return nil, fmt.Errorf("!%s: %w", normalized, entities.ErrNotFound)
	}
	return def, nil
}

// TryInvoke claims the cooldown slot of (name, channel) at now and bumps the
// usage counter. The returned definition carries the new usage count.
func (s *CommandService) TryInvoke(ctx context.Context, name, channel string, now time.Time) (*entities.CommandDefinition, error) {
	def, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	acquired, lastInvokedAt, err := s.commandRepo.TryAcquireCooldown(ctx, def.ID, channel, now, def.Cooldown)
	if err != nil {
		return nil, entities.StorageError("acquire cooldown", err)
	}
	if !acquired {
		return nil, &entities.CooldownError{
			Command:   def.Name,
			Channel:   channel,
			Remaining: def.CooldownRemaining(lastInvokedAt, now),
		}
	}

	count, err := s.commandRepo.IncrementUsage(ctx, def.ID)
	if err != nil {
		return nil, entities.StorageError("increment usage", err)
	}
	def.UsageCount = count

	return def, nil
}

// List returns every live definition
func (s *CommandService) List(ctx context.Context) ([]*entities.CommandDefinition, error) {
	defs, err := s.commandRepo.ListLive(ctx)
	if err != nil {
		return nil, entities.StorageError("list commands", err)
	}
	return defs, nil
}

func (s *CommandService) publish(def *entities.CommandDefinition, action events.CommandAction, actor string) {
	event := events.CommandChangedEvent{
		CommandID: def.ID,
		Name:      def.Name,
		Action:    action,
		Actor:     actor,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish command changed event")
	}
}
