package application

import (
	"context"
	"errors"
	"time"

	"happyfool/domain/entities"
	"happyfool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// State is a step of the per-event dispatch state machine
type State string

const (
	StateReceived     State = "received"
	StateParsed       State = "parsed"
	StateUnmatched    State = "unmatched"
	StateCommandMatch State = "command_match"
	StateGameMatch    State = "game_match"
	StateExecuted     State = "executed"
	StateResponded    State = "responded"
)

// HandlerKind groups command handlers
type HandlerKind string

const (
	KindSystem HandlerKind = "system"
	KindCustom HandlerKind = "custom"
	KindGame   HandlerKind = "game"
)

// Invocation is one parsed command ready for a handler
type Invocation struct {
	Event   *entities.ChatEvent
	Account *entities.Account
	Name    string
	Args    string
	Now     time.Time
}

// CommandHandler handles one chat command. Handlers return the reply text or
// an error that is turned into a decline reply.
type CommandHandler interface {
	Kind() HandlerKind
	Permission() entities.Role
	Handle(ctx context.Context, inv *Invocation) (string, error)
}

// Outcome is the terminal result of dispatching one event
type Outcome struct {
	State    State
	Kind     HandlerKind
	Response *Response
	Err      error
}

// Dispatcher routes chat events to at most one handler and produces at most
// one reply. Besides the lookup table it only holds the running raffle.
type Dispatcher struct {
	ledger   *LedgerStore
	executor *TransactionExecutor
	registry *CommandRegistry
	prefix   string
	points   string
	handlers map[string]CommandHandler
	raffle   *Raffle
	metrics  interfaces.MetricsRecorder
	now      func() time.Time
}

// NewDispatcher creates a dispatcher with no built-in handlers
func NewDispatcher(
	ledger *LedgerStore,
	executor *TransactionExecutor,
	registry *CommandRegistry,
	prefix, pointsName string,
	metrics interfaces.MetricsRecorder,
) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		executor: executor,
		registry: registry,
		prefix:   prefix,
		points:   pointsName,
		handlers: make(map[string]CommandHandler),
		metrics:  metricsOrNoop(metrics),
		now:      time.Now,
	}
}

// Register adds a built-in handler under name and reserves the name in the registry
func (d *Dispatcher) Register(name string, handler CommandHandler) {
	name = entities.NormalizeCommandName(name)
	d.handlers[name] = handler
	d.registry.Reserve(name)
}

// Dispatch runs one event through the state machine. Replies are returned,
// never sent, so no lock is held while talking to the chat network.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *entities.ChatEvent) Outcome {
	logger := log.WithFields(log.Fields{
		"messageID": ev.MessageID,
		"userID":    ev.UserID,
		"channel":   ev.Channel,
	})
	state := StateReceived

	account, _, ensureErr := d.ledger.EnsureAccount(ctx, ev.UserID, ev.UserLogin, ev.Timestamp)

	if d.raffle != nil && d.raffle.Observe(ev) {
		logger.Debug("Joined raffle")
	}

	cmd, ok := parseInvocation(ev.Text, d.prefix)
	if !ok {
		if ensureErr != nil {
			logger.WithError(ensureErr).Error("Failed to record chatter")
		}
		return Outcome{State: StateUnmatched}
	}
	state = StateParsed
	logger = logger.WithField("command", cmd.Name)

	inv := &Invocation{
		Event:   ev,
		Account: account,
		Name:    cmd.Name,
		Args:    cmd.Args,
		Now:     d.now(),
	}

	handler, err := d.lookup(ctx, cmd.Name)
	if err == nil && handler == nil {
		logger.Debug("No handler for command")
		return Outcome{State: StateUnmatched}
	}
	if err == nil && ensureErr != nil {
		err = ensureErr
	}
	if err != nil {
		return d.decline(logger, inv, nil, "", state, err)
	}

	kind := handler.Kind()
	state = StateCommandMatch
	if kind == KindGame {
		state = StateGameMatch
	}
	logger = logger.WithFields(log.Fields{"kind": kind, "state": state})

	if !ev.UserRole.Satisfies(handler.Permission()) {
		err := &entities.PermissionError{Command: cmd.Name, Required: handler.Permission(), Actual: ev.UserRole}
		return d.decline(logger, inv, handler, kind, state, err)
	}

	text, err := handler.Handle(ctx, inv)
	if err != nil {
		return d.decline(logger, inv, handler, kind, StateExecuted, err)
	}

	d.metrics.RecordDispatch(string(kind), "ok")
	logger.Debug("Command executed")

	if text == "" {
		return Outcome{State: StateResponded, Kind: kind}
	}
	return Outcome{
		State:    StateResponded,
		Kind:     kind,
		Response: &Response{Channel: ev.Channel, Text: text},
	}
}

// lookup returns the built-in handler for name, or a handler for the live
// custom command. Both nil means the name is unknown.
func (d *Dispatcher) lookup(ctx context.Context, name string) (CommandHandler, error) {
	if h, ok := d.handlers[name]; ok {
		return h, nil
	}

	def, err := d.registry.Resolve(ctx, name)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customCommand{def: def, dispatcher: d}, nil
}

func (d *Dispatcher) decline(logger *log.Entry, inv *Invocation, handler CommandHandler, kind HandlerKind, state State, err error) Outcome {
	d.metrics.RecordDispatch(string(kind), outcomeLabel(err))
	logger.WithError(err).WithField("state", state).Info("Command declined")

	text := declineText(err, inv, handler, d.points)
	if text == "" {
		return Outcome{State: StateResponded, Kind: kind, Err: err}
	}
	return Outcome{
		State:    StateResponded,
		Kind:     kind,
		Response: &Response{Channel: inv.Event.Channel, Text: text},
		Err:      err,
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, entities.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, entities.ErrOnCooldown):
		return "on_cooldown"
	case errors.Is(err, entities.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, entities.ErrInvalidStake):
		return "invalid_stake"
	case errors.Is(err, entities.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, entities.ErrNotFound):
		return "not_found"
	case errors.Is(err, entities.ErrDuplicateCommand):
		return "duplicate"
	case errors.Is(err, errUsage), errors.Is(err, entities.ErrInvalidCommand):
		return "bad_usage"
	case errors.Is(err, errSilent):
		return "silent"
	default:
		return "error"
	}
}
