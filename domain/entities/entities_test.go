package entities

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCommandName(t *testing.T) {
	tests := map[string]string{
		"!Hello":     "hello",
		"hello":      "hello",
		"!HeLLo!!":   "hello",
		"!so_cool-1": "socool1",
		"!":          "",
		"!ñandú":     "and",
		"  !Points ": "points",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCommandName(in), "input %q", in)
	}
}

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, RoleBroadcaster.Satisfies(RoleModerator))
	assert.True(t, RoleModerator.Satisfies(RoleModerator))
	assert.False(t, RoleSubscriber.Satisfies(RoleModerator))
	assert.True(t, RoleEveryone.Satisfies(RoleEveryone))
}

func TestParseRole(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Role
	}{
		{"everyone", RoleEveryone},
		{"Mod", RoleModerator},
		{"subs", RoleSubscriber},
		{"BROADCASTER", RoleBroadcaster},
	} {
		got, err := ParseRole(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}

	_, err := ParseRole("admin")
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) Role {
	t.Helper()
	r, err := ParseRole(s)
	require.NoError(t, err)
	return r
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	var err error = &InsufficientFundsError{AccountID: "1", Balance: 10, Required: 50}
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrInsufficientFunds))

	err = &CooldownError{Command: "hello", Channel: "#c", Remaining: 3 * time.Second}
	assert.True(t, errors.Is(err, ErrOnCooldown))
	var cd *CooldownError
	require.True(t, errors.As(fmt.Errorf("x: %w", err), &cd))
	assert.Equal(t, 3*time.Second, cd.Remaining)

	assert.True(t, errors.Is(&InvalidStakeError{Reason: "too low"}, ErrInvalidStake))
	assert.True(t, errors.Is(&PermissionError{Command: "add"}, ErrPermissionDenied))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := StorageError("append transaction", cause)

	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, StorageError("noop", nil))
}

func TestCommandDefinition_CooldownRemaining(t *testing.T) {
	def := &CommandDefinition{Cooldown: 5 * time.Second}
	last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2*time.Second, def.CooldownRemaining(last, last.Add(3*time.Second)))
	assert.Equal(t, time.Duration(0), def.CooldownRemaining(last, last.Add(5*time.Second)))
}

func TestCommandChanges_Apply(t *testing.T) {
	def := &CommandDefinition{Body: "old", Permission: RoleEveryone, Cooldown: time.Second}
	body := "new"
	perm := RoleModerator
	changes := CommandChanges{Body: &body, Permission: &perm}

	assert.False(t, changes.IsEmpty())
	changes.Apply(def)

	assert.Equal(t, "new", def.Body)
	assert.Equal(t, RoleModerator, def.Permission)
	assert.Equal(t, time.Second, def.Cooldown)
	assert.True(t, CommandChanges{}.IsEmpty())
}

func TestTransaction_Metadata(t *testing.T) {
	tx := &Transaction{
		Delta:            -50,
		ResultingBalance: 50,
		Metadata:         map[string]any{"game": "gamble", "stake": float64(50)},
	}
	assert.Equal(t, int64(100), tx.BalanceBefore())
	assert.Equal(t, "gamble", tx.MetadataString("game"))
	stake, ok := tx.MetadataInt("stake")
	assert.True(t, ok)
	assert.Equal(t, int64(50), stake)
	_, ok = tx.MetadataInt("missing")
	assert.False(t, ok)
}
