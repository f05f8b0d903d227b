// session — сессия одной роли (user/admin) поверх cookie-хранилища токенов.
//
// Manager собирает аутентифицированный HTTP-клиент (Bearer + прозрачное
// обновление токенов), определяет текущего пользователя (LoggedIn) и завершает
// сессию (Logout). Экземпляры ролей независимы: у каждой свой AuthAPI, своя
// страница входа и своя группа объединения обновлений.
package session

//go:generate mockgen -destination=../../mocks/mock_auth_api.go -package=mocks github.com/pribylovaa/event-booking/internal/session AuthAPI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/event-booking/internal/clients"
	"github.com/pribylovaa/event-booking/internal/clients/interceptors"
	"github.com/pribylovaa/event-booking/internal/credentials"
	"github.com/pribylovaa/event-booking/internal/metrics"
	"github.com/pribylovaa/event-booking/internal/models"
	logctx "github.com/pribylovaa/event-booking/pkg/log"
	"github.com/pribylovaa/event-booking/pkg/redact"
)

// ErrNoStore — в контексте запроса нет хранилища токенов.
var ErrNoStore = errors.New("credential store is missing in request context")

// AuthAPI — auth-эндпойнты бэкенда роли.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	// Profile выполняет запрос через переданный (аутентифицированный) клиент.
	Profile(ctx context.Context, hc *http.Client) (*models.Profile, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
}

// Причины завершения сессии (метка logout_total).
const (
	ReasonExplicit      = "explicit"
	ReasonRefreshFailed = "refresh_failed"
	ReasonUnauthorized  = "unauthorized"
)

// Результаты определения сессии (метка session_resolve_total).
const (
	resultAnonymous     = "anonymous"
	resultAuthenticated = "authenticated"
	resultExpired       = "expired"
	resultTransient     = "transient"
)

// Options — параметры сессии роли.
type Options struct {
	Role      models.Role
	LoginPath string
	// Base — транспорт к бэкенду (nil — http.DefaultTransport).
	Base      http.RoundTripper
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Result — итог определения сессии.
// Profile == nil — пользователь не определён; Redirect заполнен, если сессия
// была завершена и UI должен перейти на страницу входа.
type Result struct {
	Profile  *models.Profile
	Redirect string
}

// Navigation — инструкция перехода после выхода.
type Navigation struct {
	Redirect string
}

// Manager — сессия одной роли.
type Manager struct {
	api       AuthAPI
	opts      Options
	refresher interceptors.Refresher
}

// New создаёт Manager роли.
func New(api AuthAPI, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}

	return &Manager{
		api:       api,
		opts:      opts,
		refresher: interceptors.Coalesce(opts.Role, api, opts.Metrics),
	}
}

func (m *Manager) Role() models.Role { return m.opts.Role }

func (m *Manager) LoginPath() string { return m.opts.LoginPath }

// roleTokens привязывает хранилище к роли.
type roleTokens struct {
	store credentials.Store
	role  models.Role
}

func (t roleTokens) Current() models.TokenPair { return t.store.Get(t.role) }

func (t roleTokens) Update(p models.TokenPair) { t.store.Set(t.role, p) }

// Transport — аутентифицированный транспорт поверх хранилища store.
// Цепочка: metadata -> timeout -> bearer -> refresh -> logging -> base.
func (m *Manager) Transport(store credentials.Store) http.RoundTripper {
	tokens := roleTokens{store: store, role: m.opts.Role}

	return interceptors.Chain(m.opts.Base,
		interceptors.WithMetadata(m.opts.UserAgent),
		interceptors.WithTimeout(m.opts.Timeout),
		interceptors.WithBearer(tokens),
		interceptors.WithRefresh(interceptors.RefreshOptions{
			Role:      m.opts.Role,
			Tokens:    tokens,
			Refresher: m.refresher,
			OnFailure: func(ctx context.Context) string {
				return m.logout(ctx, store, ReasonRefreshFailed).Redirect
			},
		}),
		interceptors.Logging(m.opts.Logger),
	)
}

// Client — аутентифицированный клиент поверх хранилища store.
func (m *Manager) Client(store credentials.Store) *http.Client {
	return &http.Client{
		Transport:     m.Transport(store),
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

// RequestTransport — транспорт, который берёт хранилище из контекста каждого
// запроса (credentials.Into). Нужен прокси, собранному один раз на старте.
func (m *Manager) RequestTransport() http.RoundTripper {
	return interceptors.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		store, ok := credentials.From(req.Context())
		if !ok {
			return nil, ErrNoStore
		}

		return m.Transport(store).RoundTrip(req)
	})
}

// LoggedIn определяет текущего пользователя роли.
//
// Ошибки наружу не отдаются:
//   - токенов нет — Result{} без сетевых вызовов;
//   - есть только refresh — сначала обновление, затем профиль;
//   - 401/403 после обновления или неудачное обновление — сессия завершена,
//     Result{Redirect};
//   - сеть, 5xx, битый профиль — Result{}, cookie не трогаются.
func (m *Manager) LoggedIn(ctx context.Context, store credentials.Store) Result {
	role := m.opts.Role.String()
	ctx, l := logctx.With(ctx, slog.String("role", role))

	pair := store.Get(m.opts.Role)
	if pair.Empty() {
		m.opts.Metrics.SessionResolve(role, resultAnonymous)
		return Result{}
	}

	if pair.AccessToken == "" {
		// Обновление уже состоялось: интерсептор не должен обновлять повторно.
		ctx = interceptors.WithRetried(ctx)

		fresh, err := m.refresher.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			if ctx.Err() != nil {
				m.opts.Metrics.SessionResolve(role, resultTransient)
				return Result{}
			}

			l.Warn("token_refresh_failed", slog.String("err", err.Error()))
			nav := m.logout(ctx, store, ReasonRefreshFailed)
			m.opts.Metrics.SessionResolve(role, resultExpired)

			return Result{Redirect: nav.Redirect}
		}

		store.Set(m.opts.Role, fresh)
		l.Debug("token_refreshed")
	}

	profile, err := m.api.Profile(ctx, m.Client(store))
	if err == nil {
		m.opts.Metrics.SessionResolve(role, resultAuthenticated)
		return Result{Profile: profile}
	}

	var re *interceptors.RefreshError
	switch {
	case errors.As(err, &re):
		// Интерсептор уже завершил сессию.
		m.opts.Metrics.SessionResolve(role, resultExpired)
		return Result{Redirect: re.Redirect}

	case clients.IsAuthFailure(err):
		nav := m.logout(ctx, store, ReasonUnauthorized)
		m.opts.Metrics.SessionResolve(role, resultExpired)
		return Result{Redirect: nav.Redirect}

	default:
		l.Warn("session_resolve_failed", slog.String("err", err.Error()))
		m.opts.Metrics.SessionResolve(role, resultTransient)
		return Result{}
	}
}

// Logout завершает сессию роли. Идемпотентен.
func (m *Manager) Logout(ctx context.Context, store credentials.Store) Navigation {
	return m.logout(ctx, store, ReasonExplicit)
}

// logout: уведомление бэкенда (если есть refresh) — best-effort, очистка — всегда.
func (m *Manager) logout(ctx context.Context, store credentials.Store, reason string) Navigation {
	role := m.opts.Role.String()
	l := logctx.From(ctx).With(slog.String("role", role))

	if rt := store.Get(m.opts.Role).RefreshToken; rt != "" {
		// Уведомление не должно обрываться вместе с запросом клиента.
		if err := m.api.Logout(context.WithoutCancel(ctx), rt); err != nil {
			l.Warn("logout_notify_failed",
				slog.String("refresh_token", redact.Token(rt)),
				slog.String("err", err.Error()),
			)
		}
	}

	store.Clear(m.opts.Role)
	m.opts.Metrics.Logout(role, reason)
	l.Info("logged_out", slog.String("reason", reason))

	return Navigation{Redirect: m.opts.LoginPath}
}

// Login выполняет вход и сохраняет пару в хранилище.
func (m *Manager) Login(ctx context.Context, store credentials.Store, email, password string) error {
	const op = "session/Manager.Login"

	l := logctx.From(ctx).With(
		slog.String("role", m.opts.Role.String()),
		slog.String("email", redact.Email(email)),
	)

	pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		l.Info("login_failed", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	store.Set(m.opts.Role, pair)
	l.Info("logged_in")

	return nil
}

// ForgotPassword запрашивает письмо для сброса пароля.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	const op = "session/Manager.ForgotPassword"

	if err := m.api.ForgotPassword(ctx, email); err != nil {
		logctx.From(ctx).Warn("forgot_password_failed",
			slog.String("role", m.opts.Role.String()),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
