package events

import "happyfool/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeAccountCreated EventType = "account_created"
	EventTypeCommandChanged EventType = "command_changed"
	EventTypeGamePlayed     EventType = "game_played"
)

// AllEventTypes lists every event type, used to declare stream subjects
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeAccountCreated,
	EventTypeCommandChanged,
	EventTypeGamePlayed,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is emitted once per committed ledger transaction
type BalanceChangeEvent struct {
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	OldBalance    int64           `json:"old_balance"`
	NewBalance    int64           `json:"new_balance"`
	ChangeAmount  int64           `json:"change_amount"`
	Reason        entities.Reason `json:"reason"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent is emitted the first time a chat user is observed
type AccountCreatedEvent struct {
	AccountID      string `json:"account_id"`
	Login          string `json:"login"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// CommandAction describes what happened to a command definition
type CommandAction string

const (
	CommandActionAdded   CommandAction = "added"
	CommandActionEdited  CommandAction = "edited"
	CommandActionDeleted CommandAction = "deleted"
)

// CommandChangedEvent is emitted when the registry changes
type CommandChangedEvent struct {
	CommandID int64         `json:"command_id"`
	Name      string        `json:"name"`
	Action    CommandAction `json:"action"`
	Actor     string        `json:"actor"`
}

func (e CommandChangedEvent) Type() EventType {
	return EventTypeCommandChanged
}

// GamePlayedEvent is emitted after a game outcome is committed
type GamePlayedEvent struct {
	AccountID  string `json:"account_id"`
	MessageID  string `json:"message_id"`
	Game       string `json:"game"`
	Stake      int64  `json:"stake"`
	Multiplier int64  `json:"multiplier"`
	Net        int64  `json:"net"`
	Detail     string `json:"detail"`
}

func (e GamePlayedEvent) Type() EventType {
	return EventTypeGamePlayed
}
