package clients

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pribylovaa/event-booking/internal/clients/interceptors"
	"github.com/pribylovaa/event-booking/internal/config"
	"github.com/pribylovaa/event-booking/internal/models"
)

// Clients агрегирует HTTP-клиенты бэкенда для обеих ролей.
type Clients struct {
	User  *Backend
	Admin *Backend

	// Base — общий транспорт к бэкенду; поверх него сессии ролей собирают
	// аутентифицированные клиенты.
	Base      http.RoundTripper
	UserAgent string
	Timeout   time.Duration

	transport *http.Transport
}

// New создаёт транспорт и неаутентифицированные клиенты ролей.
func New(cfg config.Config, log *slog.Logger) (*Clients, error) {
	const op = "internal/clients/New"

	// Параметры исходящих вызовов.
	timeout := cfg.Timeouts.Upstream
	userAgent := cfg.Backend.UserAgent

	u, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse backend url: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: backend url %q must be absolute", op, cfg.Backend.URL)
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	// Цепочка клиентских интерсепторов: metadata -> timeout -> logging.
	plain := &http.Client{
		Transport: interceptors.Chain(tr,
			interceptors.WithMetadata(userAgent),
			interceptors.WithTimeout(timeout),
			interceptors.Logging(log),
		),
		// Редиректы бэкенда отдаются вызывающему как есть.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	return &Clients{
		User:      NewBackend(cfg.Backend.URL, cfg.User.Prefix, plain),
		Admin:     NewBackend(cfg.Backend.URL, cfg.Admin.Prefix, plain),
		Base:      tr,
		UserAgent: userAgent,
		Timeout:   timeout,
		transport: tr,
	}, nil
}

// For возвращает клиент роли.
func (c *Clients) For(role models.Role) *Backend {
	if role == models.RoleAdmin {
		return c.Admin
	}

	return c.User
}

// Close закрывает простаивающие соединения.
func (c *Clients) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	return nil
}
