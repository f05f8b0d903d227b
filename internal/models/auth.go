package models

// Role — роль, для которой ведётся независимая сессия.
// Роль определяет имена cookie, префикс путей бэкенда и страницу входа.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// TokenPair — пара токенов роли.
//
// Описание:
//   - AccessToken — короткоживущий токен, уходит в Authorization: Bearer;
//   - RefreshToken — секрет для выпуска новой пары через /auth/refresh-token.
//
// Пара, прочитанная из хранилища, может быть частичной (например, access-cookie
// уже истекла, а refresh ещё жива).
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty — в хранилище нет ни одного токена роли.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Complete — оба токена на месте (так выглядит ответ login/refresh).
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Входные/выходные модели REST-слоя шлюза.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// OKResponse — ответ без полезной нагрузки; токены браузеру не отдаются.
type OKResponse struct {
	Ok bool `json:"ok"`
}

// SessionResponse — результат Session Resolver для UI.
// Redirect заполнен, если сессия была принудительно завершена.
type SessionResponse struct {
	Authenticated bool     `json:"authenticated"`
	Profile       *Profile `json:"profile,omitempty"`
	Redirect      string   `json:"redirect,omitempty"`
}

// LogoutResponse — инструкция навигации после выхода.
type LogoutResponse struct {
	Redirect string `json:"redirect"`
}

type LocaleRequest struct {
	Locale string `json:"locale"`
}

type LocaleResponse struct {
	Locale string `json:"locale"`
	Dir    string `json:"dir"`
}
