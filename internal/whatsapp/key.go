package whatsapp

import "strings"

// conversationKey приводит адрес отправителя к стабильному ключу диалога.
// Twilio присылает "whatsapp:+5215512345678", ключом становится "+5215512345678".
// Все фрагменты с одним ключом буферизуются вместе.
func conversationKey(origin string) string {
	origin = strings.TrimPrefix(strings.TrimSpace(origin), "whatsapp:")

	var digits strings.Builder
	for _, r := range origin {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() == 0 {
		return ""
	}
	return "+" + digits.String()
}
