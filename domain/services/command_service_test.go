package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHelloCommand() *entities.CommandDefinition {
	return &entities.CommandDefinition{
		ID:         7,
		Name:       "hello",
		Body:       "Hi there!",
		Permission: entities.RoleEveryone,
		Cooldown:   5 * time.Second,
		Creator:    "mod",
	}
}

func TestCommandService_Add(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	def := &entities.CommandDefinition{Name: "!Hello", Body: " Hi there! ", Cooldown: 5 * time.Second, Creator: "mod"}
	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(nil, nil)
	mocks.CommandRepo.On("Create", ctx, mock.MatchedBy(func(d *entities.CommandDefinition) bool {
		return d.Name == "hello" && d.Body == "Hi there!"
	})).Return(nil)
	mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.CommandChangedEvent) bool {
		return e.Name == "hello" && e.Action == events.CommandActionAdded && e.Actor == "mod"
	})).Return(nil)

	require.NoError(t, service.Add(ctx, def))
	mocks.AssertAllExpectations(t)
}

func TestCommandService_Add_Duplicate(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(newHelloCommand(), nil)

	err := service.Add(ctx, &entities.CommandDefinition{Name: "HELLO", Body: "again"})
	assert.ErrorIs(t, err, entities.ErrDuplicateCommand)
	mocks.CommandRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCommandService_Add_Invalid(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	assert.ErrorIs(t, service.Add(ctx, &entities.CommandDefinition{Name: "!!", Body: "x"}), entities.ErrInvalidCommand)
	assert.ErrorIs(t, service.Add(ctx, &entities.CommandDefinition{Name: "a", Body: "  "}), entities.ErrInvalidCommand)
	assert.ErrorIs(t, service.Add(ctx, &entities.CommandDefinition{Name: "a", Body: "x", Cost: -1}), entities.ErrInvalidCommand)
}

func TestCommandService_Edit(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(newHelloCommand(), nil)
	mocks.CommandRepo.On("Update", ctx, mock.MatchedBy(func(d *entities.CommandDefinition) bool {
		return d.Body == "Hello again" && d.Cooldown == 5*time.Second && d.Permission == entities.RoleEveryone
	})).Return(nil)
	mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.CommandChangedEvent")).Return(nil)

	body := "Hello again"
	def, err := service.Edit(ctx, "!hello", entities.CommandChanges{Body: &body}, "mod")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", def.Body)
	mocks.AssertAllExpectations(t)
}

func TestCommandService_Edit_NotFound(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "missing").Return(nil, nil)

	body := "x"
	_, err := service.Edit(ctx, "missing", entities.CommandChanges{Body: &body}, "mod")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestCommandService_Delete(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(newHelloCommand(), nil)
	mocks.CommandRepo.On("Tombstone", ctx, int64(7), TestNow).Return(nil)
	mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.CommandChangedEvent) bool {
		return e.Action == events.CommandActionDeleted
	})).Return(nil)

	def, err := service.Delete(ctx, "hello", "mod", TestNow)
	require.NoError(t, err)
	assert.False(t, def.IsLive())
	mocks.AssertAllExpectations(t)
}

func TestCommandService_TryInvoke(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(newHelloCommand(), nil)
	mocks.CommandRepo.On("TryAcquireCooldown", ctx, int64(7), TestChannel, TestNow, 5*time.Second).Return(true, time.Time{}, nil)
	mocks.CommandRepo.On("IncrementUsage", ctx, int64(7)).Return(int64(3), nil)

	def, err := service.TryInvoke(ctx, "hello", TestChannel, TestNow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), def.UsageCount)
}

func TestCommandService_TryInvoke_OnCooldown(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	last := TestNow.Add(-2 * time.Second)
	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(newHelloCommand(), nil)
	mocks.CommandRepo.On("TryAcquireCooldown", ctx, int64(7), TestChannel, TestNow, 5*time.Second).Return(false, last, nil)

	_, err := service.TryInvoke(ctx, "hello", TestChannel, TestNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrOnCooldown)

	var cooldown *entities.CooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, 3*time.Second, cooldown.Remaining)
	mocks.CommandRepo.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything)
}

func TestCommandService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewCommandService(mocks.CommandRepo, mocks.EventPublisher)

	mocks.CommandRepo.On("GetLive", ctx, "hello").Return(nil, errors.New("timeout"))
	_, err := service.Resolve(ctx, "hello")
	assert.ErrorIs(t, err, entities.ErrStorageUnavailable)

	mocks.CommandRepo.On("ListLive", ctx).Return(nil, errors.New("timeout"))
	_, err = service.List(ctx)
	assert.ErrorIs(t, err, entities.ErrStorageUnavailable)
}
