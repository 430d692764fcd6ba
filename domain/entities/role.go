package entities

import (
	"fmt"
	"strings"
)

// Role is a chat user's privilege level. Roles are totally ordered and the
// same scale is used for a command's required permission.
type Role int

const (
	RoleEveryone Role = iota
	RoleSubscriber
	RoleModerator
	RoleBroadcaster
)

var roleNames = map[Role]string{
	RoleEveryone:    "everyone",
	RoleSubscriber:  "subscriber",
	RoleModerator:   "moderator",
	RoleBroadcaster: "broadcaster",
}

// String returns the role's canonical name
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Satisfies returns true if a user holding r may use something gated at required
func (r Role) Satisfies(required Role) bool {
	return r >= required
}

// ParseRole parses a role name. A few chat aliases are accepted.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "everyone", "all", "viewer":
		return RoleEveryone, nil
	case "subscriber", "sub", "subs":
		return RoleSubscriber, nil
	case "moderator", "mod", "mods":
		return RoleModerator, nil
	case "broadcaster", "owner", "streamer":
		return RoleBroadcaster, nil
	}
	return RoleEveryone, fmt.Errorf("unknown role %q", s)
}
