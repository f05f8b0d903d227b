// redact — маскирование чувствительных значений перед логированием.
package redact

import "strings"

// Email оставляет два первых символа локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token скрывает значение токена; пустой токен помечается отдельно,
// чтобы в логах было видно «токена не было» против «токен был».
func Token(tok string) string {
	if tok == "" {
		return "[EMPTY]"
	}

	return "[REDACTED_TOKEN]"
}
