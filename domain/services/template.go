package services

import (
	"strconv"
	"strings"
)

// TemplateVars are the values a custom command body can reference
type TemplateVars struct {
	User    string
	ToUser  string
	Count   int64
	Channel string
}

// RenderTemplate substitutes $(user), $(touser), $(count) and $(channel).
// $(touser) falls back to the caller when no target was given.
func RenderTemplate(body string, vars TemplateVars) string {
	toUser := strings.TrimPrefix(strings.TrimSpace(vars.ToUser), "@")
	if toUser == "" {
		toUser = vars.User
	}

	return strings.NewReplacer(
		"$(user)", vars.User,
		"$(touser)", toUser,
		"$(count)", strconv.FormatInt(vars.Count, 10),
		"$(channel)", vars.Channel,
	).Replace(body)
}
