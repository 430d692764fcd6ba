package application

import (
	"errors"
	"fmt"
	"strings"

	"happyfool/domain/entities"
	"happyfool/domain/utils"

	log "github.com/sirupsen/logrus"
)

var (
	// errUsage means the arguments could not be parsed; the reply shows the handler's usage line
	errUsage = errors.New("bad usage")
	// errSilent ends an event without any reply
	errSilent = errors.New("no reply")
)

// usageHelp is implemented by handlers that can explain their arguments
type usageHelp interface {
	Usage() string
}

// Response is one outbound chat message
type Response struct {
	Channel string
	Text    string
}

// declineText turns a handler error into the single reply for the event. An
// empty string means the event ends in silence.
func declineText(err error, inv *Invocation, handler CommandHandler, pointsName string) string {
	user := "@" + inv.Event.UserLogin

	var (
		permissionErr   *entities.PermissionError
		cooldownErr     *entities.CooldownError
		insufficientErr *entities.InsufficientFundsError
		stakeErr        *entities.InvalidStakeError
	)

	switch {
	case errors.Is(err, errSilent):
		return ""
	case errors.Is(err, errUsage):
		if h, ok := handler.(usageHelp); ok {
			return fmt.Sprintf("%s, usage: %s", user, h.Usage())
		}
		return fmt.Sprintf("%s, that doesn't look right.", user)
	case errors.As(err, &permissionErr):
		return fmt.Sprintf("%s, !%s is for %s only.", user, permissionErr.Command, plural(permissionErr.Required))
	case errors.As(err, &cooldownErr):
		return fmt.Sprintf("%s, !%s is on cooldown for %s.", user, cooldownErr.Command, utils.FormatWait(cooldownErr.Remaining))
	case errors.As(err, &insufficientErr):
		return fmt.Sprintf("%s, you need %d %s but only have %d.", user, insufficientErr.Required, pointsName, insufficientErr.Balance)
	case errors.As(err, &stakeErr):
		return stakeText(user, stakeErr, pointsName)
	case errors.Is(err, entities.ErrBalanceOverflow):
		return fmt.Sprintf("%s, that amount is too large.", user)
	case errors.Is(err, entities.ErrDuplicateCommand):
		return fmt.Sprintf("%s, that command already exists.", user)
	case errors.Is(err, entities.ErrInvalidCommand):
		return fmt.Sprintf("%s, %s.", user, strings.TrimPrefix(err.Error(), entities.ErrInvalidCommand.Error()+": "))
	case errors.Is(err, entities.ErrNotFound):
		return fmt.Sprintf("%s, %s not found.", user, notFoundSubject(err))
	case errors.Is(err, entities.ErrStorageUnavailable):
		log.WithError(err).WithField("messageID", inv.Event.MessageID).Error("Storage unavailable while handling command")
		return fmt.Sprintf("%s, the %s bank is unavailable right now, try again in a moment.", user, pointsName)
	default:
		log.WithError(err).WithField("messageID", inv.Event.MessageID).Error("Unexpected error while handling command")
		return fmt.Sprintf("%s, something went wrong, try again later.", user)
	}
}

func stakeText(user string, err *entities.InvalidStakeError, pointsName string) string {
	switch {
	case err.Minimum > 0 && err.Stake > 0 && err.Stake < err.Minimum:
		return fmt.Sprintf("%s, the minimum bet is %d %s.", user, err.Minimum, pointsName)
	case err.Stake > err.Balance && err.Stake > 0:
		return fmt.Sprintf("%s, you only have %d %s.", user, err.Balance, pointsName)
	default:
		return fmt.Sprintf("%s, bet a positive amount of %s.", user, pointsName)
	}
}

// notFoundSubject picks the thing that was missing out of a wrapped error
func notFoundSubject(err error) string {
	subject, _, ok := strings.Cut(err.Error(), ": ")
	if !ok || subject == "" {
		return "that"
	}
	return strings.TrimPrefix(subject, "user ")
}

func plural(role entities.Role) string {
	switch role {
	case entities.RoleEveryone:
		return "everyone"
	case entities.RoleBroadcaster:
		return "the broadcaster"
	default:
		return role.String() + "s"
	}
}
