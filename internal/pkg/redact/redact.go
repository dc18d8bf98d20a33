// redact маскирует чувствительные данные перед записью в лог:
// логин пользователя (e-mail) и bearer-токены.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email маскирует e-mail: первые две руны локальной части + "***", домен как есть.
// Строка без ровно одного '@' целиком превращается в "***".
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает заглушку с коротким отпечатком токена.
// Отпечаток (первые 4 байта sha256) позволяет сопоставить записи
// об одном и том же токене, не раскрывая его.
func Token(tok string) string {
	if tok == "" {
		return "[EMPTY_TOKEN]"
	}

	sum := sha256.Sum256([]byte(tok))
	return "[REDACTED_TOKEN#" + hex.EncodeToString(sum[:4]) + "]"
}

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }
