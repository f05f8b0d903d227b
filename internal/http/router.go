package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/event-booking/internal/credentials"
	"github.com/pribylovaa/event-booking/internal/http/handlers"
	"github.com/pribylovaa/event-booking/internal/http/middleware"
	"github.com/pribylovaa/event-booking/internal/locale"
	"github.com/pribylovaa/event-booking/internal/models"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Cookies — атрибуты cookie токенов ролей.
	Cookies credentials.Options
	Locale  locale.Options
	// Renderer — обработчик страниц (прокси рендеринга); nil — 404.
	Renderer http.Handler
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}
	root.Use(middleware.Credentials(opts.Cookies)) // cookie-хранилище токенов запроса

	registerRoutes(root, h)

	if opts.Renderer != nil {
		root.Handle("/*", locale.Middleware(opts.Locale)(opts.Renderer))
	}

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	registerRole(r, "/api", models.RoleUser, h)
	registerRole(r, "/api/admin", models.RoleAdmin, h)

	// locale
	r.Post("/api/locale", h.SetLocale)
}

func registerRole(r chi.Router, base string, role models.Role, h *handlers.Handlers) {
	// auth
	r.Post(base+"/auth/login", h.Login(role))
	r.Post(base+"/auth/forgot-password", h.ForgotPassword(role))
	r.Get(base+"/auth/session", h.Session(role))
	r.Post(base+"/auth/logout", h.Logout(role))

	// ресурсы бэкенда (events, categories, bookings, ...)
	r.Handle(base+"/backend/*", h.BackendProxy(role))
}
