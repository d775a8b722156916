package bot

import (
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
)

// MediaPlaceholder stands in for messages that carry no text at all.
const MediaPlaceholder = "[media]"

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return userName
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}

// DisplayName is the @handle when present, the full name otherwise.
func DisplayName(user *api.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	if name := GetFullName(user); name != "" {
		return name
	}
	return "user"
}

// ExtractContent returns the text a classifier sees for msg.
func ExtractContent(msg *api.Message) string {
	if msg == nil {
		return ""
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		return text
	}
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		return caption
	}
	if msg.Poll != nil {
		return "[poll] " + msg.Poll.Question
	}
	return MediaPlaceholder
}
