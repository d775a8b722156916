package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// IsElevated reports whether the member may approve or reverse sanctions.
func IsElevated(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

// CanEnforce reports whether the member can restrict, ban and delete in the chat.
func CanEnforce(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && member.CanRestrictMembers && member.CanDeleteMessages
}
