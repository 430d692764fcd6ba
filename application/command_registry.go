package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/interfaces"
	"happyfool/domain/services"
	"happyfool/domain/utils"
)

// CommandRegistry owns user-defined commands. Definition changes are
// serialized per name and cooldown claims per (name, channel).
type CommandRegistry struct {
	uowFactory interfaces.UnitOfWorkFactory
	locks      *utils.KeyedMutex

	mu       sync.RWMutex
	reserved map[string]struct{}
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(uowFactory interfaces.UnitOfWorkFactory) *CommandRegistry {
	return &CommandRegistry{
		uowFactory: uowFactory,
		locks:      utils.NewKeyedMutex(),
		reserved:   make(map[string]struct{}),
	}
}

// Reserve marks names that belong to built-in handlers and cannot be added
func (r *CommandRegistry) Reserve(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.reserved[entities.NormalizeCommandName(name)] = struct{}{}
	}
}

func (r *CommandRegistry) isReserved(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.reserved[name]
	return ok
}

func definitionKey(name string) string {
	return "def:" + name
}

func cooldownKey(name, channel string) string {
	return "cd:" + name + "|" + channel
}

// Add stores a new definition. Fails with ErrDuplicateCommand if the name is
// live or reserved.
func (r *CommandRegistry) Add(ctx context.Context, def *entities.CommandDefinition) error {
	if err := services.ValidateDefinition(def); err != nil {
		return err
	}
	if r.isReserved(def.Name) {
		return fmt.Errorf("!%s is built in: %w", def.Name, entities.ErrDuplicateCommand)
	}

	unlock, err := r.locks.Lock(ctx, definitionKey(def.Name))
	if err != nil {
		return err
	}
	defer unlock()

	return runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		return services.NewCommandService(uow.CommandRepository(), uow.EventBus()).Add(ctx, def)
	})
}

// Edit changes the given fields of a live definition
func (r *CommandRegistry) Edit(ctx context.Context, name string, changes entities.CommandChanges, actor string) (*entities.CommandDefinition, error) {
	name = entities.NormalizeCommandName(name)
	unlock, err := r.locks.Lock(ctx, definitionKey(name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var def *entities.CommandDefinition
	err = runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		d, err := services.NewCommandService(uow.CommandRepository(), uow.EventBus()).Edit(ctx, name, changes, actor)
		def = d
		return err
	})
	return def, err
}

// Delete tombstones a live definition. The name can be added again afterwards.
func (r *CommandRegistry) Delete(ctx context.Context, name, actor string, at time.Time) (*entities.CommandDefinition, error) {
	name = entities.NormalizeCommandName(name)
	unlock, err := r.locks.Lock(ctx, definitionKey(name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var def *entities.CommandDefinition
	err = runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		d, err := services.NewCommandService(uow.CommandRepository(), uow.EventBus()).Delete(ctx, name, actor, at)
		def = d
		return err
	})
	return def, err
}

// Resolve returns the live definition for name or ErrNotFound
func (r *CommandRegistry) Resolve(ctx context.Context, name string) (*entities.CommandDefinition, error) {
	var def *entities.CommandDefinition
	err := runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		d, err := services.NewCommandService(uow.CommandRepository(), uow.EventBus()).Resolve(ctx, name)
		def = d
		return err
	})
	return def, err
}

// TryInvoke claims the cooldown slot for (name, channel) at now. It fails with
// a CooldownError if the previous invocation is less than the cooldown ago.
func (r *CommandRegistry) TryInvoke(ctx context.Context, name, channel string, now time.Time) (*entities.CommandDefinition, error) {
	name = entities.NormalizeCommandName(name)
	unlock, err := r.locks.Lock(ctx, cooldownKey(name, channel))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var def *entities.CommandDefinition
	err = runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		d, err := services.NewCommandService(uow.CommandRepository(), uow.EventBus()).TryInvoke(ctx, name, channel, now)
		def = d
		return err
	})
	return def, err
}

// List returns every live definition
func (r *CommandRegistry) List(ctx context.Context) ([]*entities.CommandDefinition, error) {
	var defs []*entities.CommandDefinition
	err := runInUnitOfWork(ctx, r.uowFactory, func(uow interfaces.UnitOfWork) error {
		d, err := services.NewCommandService(uow.CommandRepository(), uow.EventBus()).List(ctx)
		defs = d
		return err
	})
	return defs, err
}
