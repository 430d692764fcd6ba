package bot

import (
	"slices"

	"happyfool/domain/entities"

	"github.com/bwmarrin/discordgo"
)

// resolveRole maps a guild member onto a chat role. The guild owner is the
// broadcaster; moderator roles or the manage messages permission make a
// moderator; subscriber roles make a subscriber.
func resolveRole(member *discordgo.Member, userID, ownerID string, permissions int64, config Config) string {
	if ownerID != "" && userID == ownerID {
		return entities.RoleBroadcaster.String()
	}
	if permissions&discordgo.PermissionAdministrator != 0 || permissions&discordgo.PermissionManageMessages != 0 {
		return entities.RoleModerator.String()
	}
	if member == nil {
		return entities.RoleEveryone.String()
	}
	if hasAnyRole(member.Roles, config.ModeratorRoleIDs) {
		return entities.RoleModerator.String()
	}
	if hasAnyRole(member.Roles, config.SubscriberRoleIDs) || member.PremiumSince != nil {
		return entities.RoleSubscriber.String()
	}
	return entities.RoleEveryone.String()
}

func hasAnyRole(memberRoles, wanted []string) bool {
	for _, id := range wanted {
		if slices.Contains(memberRoles, id) {
			return true
		}
	}
	return false
}
