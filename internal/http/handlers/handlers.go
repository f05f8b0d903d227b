package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pribylovaa/event-booking/internal/clients"
	"github.com/pribylovaa/event-booking/internal/credentials"
	apierrors "github.com/pribylovaa/event-booking/internal/errors"
	"github.com/pribylovaa/event-booking/internal/locale"
	"github.com/pribylovaa/event-booking/internal/models"
	"github.com/pribylovaa/event-booking/internal/session"
)

// defaultMaxBody — предел тела проксируемого запроса, если он не задан.
const defaultMaxBody = 10 << 20

// Role — зависимости одной роли: сессия и auth-клиент бэкенда.
type Role struct {
	Session *session.Manager
	Backend *clients.Backend
}

// Options — зависимости хендлеров.
type Options struct {
	User  Role
	Admin Role
	// MaxBodyBytes — предел тела запроса к бэкенду (буферизуется для повтора).
	MaxBodyBytes int64
	Locale       locale.CookieOptions
}

// Handlers агрегирует зависимости (сессии ролей, клиенты бэкенда).
type Handlers struct {
	user    Role
	admin   Role
	maxBody int64
	locale  locale.CookieOptions
}

func New(opts Options) *Handlers {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}

	return &Handlers{
		user:    opts.User,
		admin:   opts.Admin,
		maxBody: opts.MaxBodyBytes,
		locale:  opts.Locale,
	}
}

func (h *Handlers) role(role models.Role) Role {
	if role == models.RoleAdmin {
		return h.admin
	}

	return h.user
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("decode body: %w: %v", apierrors.ErrInvalidArgument, err)
	}

	return nil
}

// storeFrom — хранилище токенов текущего запроса (кладёт middleware.Credentials).
func storeFrom(r *http.Request) (credentials.Store, error) {
	store, ok := credentials.From(r.Context())
	if !ok {
		return nil, session.ErrNoStore
	}

	return store, nil
}
