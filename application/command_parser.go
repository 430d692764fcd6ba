package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"happyfool/domain/entities"
)

// commandSpec is the parsed argument text of !add and !edit, e.g.
// `!hello "Hi there!" permission=everyone cooldown=5 cost=10`
type commandSpec struct {
	Name       string
	Body       *string
	Permission *entities.Role
	Cooldown   *time.Duration
	Cost       *int64
}

// parsedCommand splits chat text into a command name and its argument text
type parsedCommand struct {
	Name string
	Args string
}

// parseInvocation extracts the leading command token. It returns false when
// the text does not start with prefix or names nothing.
func parseInvocation(text, prefix string) (parsedCommand, bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return parsedCommand{}, false
	}

	head, args := cutSpace(strings.TrimPrefix(text, prefix))
	name := entities.NormalizeCommandName(head)
	if name == "" {
		return parsedCommand{}, false
	}
	return parsedCommand{Name: name, Args: strings.TrimSpace(args)}, true
}

// cutSpace splits s around its first whitespace rune
func cutSpace(s string) (before, after string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	_, size := utf8.DecodeRuneInString(s[idx:])
	return s[:idx], s[idx+size:]
}

// parseCommandSpec parses the arguments of !add and !edit. Trailing key=value
// options are taken off the end; whatever remains after the name is the body.
func parseCommandSpec(args string) (*commandSpec, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, errUsage
	}

	spec := &commandSpec{Name: entities.NormalizeCommandName(fields[0])}
	if spec.Name == "" {
		return nil, errUsage
	}

	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), fields[0]))
	for {
		idx := strings.LastIndexFunc(rest, unicode.IsSpace)
		last := rest
		if idx >= 0 {
			_, size := utf8.DecodeRuneInString(rest[idx:])
			last = rest[idx+size:]
		}
		key, value, ok := strings.Cut(last, "=")
		if !ok || !isOptionKey(key) {
			break
		}
		if err := spec.setOption(strings.ToLower(key), value); err != nil {
			return nil, err
		}
		if idx < 0 {
			rest = ""
			break
		}
		rest = strings.TrimSpace(rest[:idx])
	}

	body := unquote(rest)
	if body != "" {
		spec.Body = &body
	}
	return spec, nil
}

func isOptionKey(key string) bool {
	switch strings.ToLower(key) {
	case "permission", "perm", "cooldown", "cd", "cost":
		return true
	}
	return false
}

func (s *commandSpec) setOption(key, value string) error {
	switch key {
	case "permission", "perm":
		role, err := entities.ParseRole(value)
		if err != nil {
			return fmt.Errorf("%w: %v", entities.ErrInvalidCommand, err)
		}
		s.Permission = &role
	case "cooldown", "cd":
		cooldown, err := parseCooldown(value)
		if err != nil {
			return err
		}
		s.Cooldown = &cooldown
	case "cost":
		cost, err := strconv.ParseInt(value, 10, 64)
		if err != nil || cost < 0 {
			return fmt.Errorf("%w: cost must be a whole number of points", entities.ErrInvalidCommand)
		}
		s.Cost = &cost
	}
	return nil
}

// parseCooldown accepts whole seconds ("5") or a duration ("1m30s")
func parseCooldown(value string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: cooldown must be seconds or a duration like 1m30s", entities.ErrInvalidCommand)
	}
	return d.Truncate(time.Second), nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// parseAmount parses a positive whole amount
func parseAmount(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return n, err == nil && n > 0
}
