// credentials — хранилище пар токенов ролей в cookie браузера.
//
// Основные аспекты:
//   - у каждой роли свой набор cookie (access/refresh) и своя политика истечения;
//     роли никак не связаны между собой;
//   - токены лежат в двух независимых cookie, а не в одном составном значении;
//   - CookieStore живёт в пределах одного входящего запроса: читает cookie запроса,
//     пишет Set-Cookie в ответ и держит overlay, чтобы последующие чтения в этом же
//     запросе видели записанные значения (повтор запроса после refresh);
//   - Set пишет оба токена под одной блокировкой, Clear удаляет сначала refresh,
//     затем access.
package credentials

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/event-booking/internal/models"
)

// Store — контракт хранилища токенов.
// Get может вернуть частичную пару (любое поле пустое).
type Store interface {
	Get(role models.Role) models.TokenPair
	Set(role models.Role, pair models.TokenPair)
	Clear(role models.Role)
}

// CookieNames — имена cookie роли.
type CookieNames struct {
	Access  string
	Refresh string
}

// NamesFor возвращает схему cookie для роли.
func NamesFor(role models.Role) CookieNames {
	if role == models.RoleAdmin {
		return CookieNames{Access: "accessTokenAdmin", Refresh: "refreshTokenAdmin"}
	}

	return CookieNames{Access: "accessToken", Refresh: "refreshToken"}
}

// Policy — политика истечения cookie роли.
// TTL <= 0 — session cookie (без Expires), если токен не несёт exp.
type Policy struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Options — атрибуты cookie и политики ролей.
type Options struct {
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	User     Policy
	Admin    Policy
}

func (o Options) policy(role models.Role) Policy {
	if role == models.RoleAdmin {
		return o.Admin
	}

	return o.User
}

// CookieStore — реализация Store поверх пары (ResponseWriter, Request).
type CookieStore struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	r       *http.Request
	opts    Options
	now     func() time.Time
	overlay map[string]string
}

// New создаёт хранилище для одного входящего запроса.
func New(w http.ResponseWriter, r *http.Request, opts Options) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		opts:    opts,
		now:     time.Now,
		overlay: make(map[string]string),
	}
}

func (s *CookieStore) Get(role models.Role) models.TokenPair {
	n := NamesFor(role)

	s.mu.Lock()
	defer s.mu.Unlock()

	return models.TokenPair{
		AccessToken:  s.value(n.Access),
		RefreshToken: s.value(n.Refresh),
	}
}

func (s *CookieStore) Set(role models.Role, pair models.TokenPair) {
	n := NamesFor(role)
	p := s.opts.policy(role)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.write(n.Refresh, pair.RefreshToken, expiresAt(pair.RefreshToken, p.RefreshTTL, now), now)
	s.write(n.Access, pair.AccessToken, expiresAt(pair.AccessToken, p.AccessTTL, now), now)
}

func (s *CookieStore) Clear(role models.Role) {
	n := NamesFor(role)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Порядок важен: refresh первым, чтобы конкурентное чтение не увидело
	// «живой» refresh при уже стёртом access и не запустило новое обновление.
	s.remove(n.Refresh)
	s.remove(n.Access)
}

// value — overlay имеет приоритет над cookie запроса. Вызывать под s.mu.
func (s *CookieStore) value(name string) string {
	if v, ok := s.overlay[name]; ok {
		return v
	}

	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}

func (s *CookieStore) write(name, value string, exp time.Time, now time.Time) {
	if value == "" {
		s.remove(name)
		return
	}

	c := s.base(name, value)
	if !exp.IsZero() {
		c.Expires = exp
		c.MaxAge = maxAge(exp, now)
	}

	http.SetCookie(s.w, c)
	s.overlay[name] = value
}

func (s *CookieStore) remove(name string) {
	c := s.base(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)

	http.SetCookie(s.w, c)
	s.overlay[name] = ""
}

func (s *CookieStore) base(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		Secure:   s.opts.Secure,
		HttpOnly: s.opts.HTTPOnly,
		SameSite: s.opts.SameSite,
	}
}

// expiresAt: exp из JWT, если он в будущем; иначе now+ttl; ttl <= 0 — нулевое время.
func expiresAt(token string, ttl time.Duration, now time.Time) time.Time {
	if exp, ok := tokenExpiry(token); ok && exp.After(now) {
		return exp
	}

	if ttl <= 0 {
		return time.Time{}
	}

	return now.Add(ttl)
}

// tokenExpiry читает exp без проверки подписи: подпись проверяет бэкенд,
// шлюзу нужно только время жизни cookie.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

func maxAge(exp, now time.Time) int {
	secs := int(exp.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}

	return secs
}

type ctxKey struct{}

// Into кладёт хранилище в контекст запроса.
func Into(ctx context.Context, s Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From достаёт хранилище из контекста.
func From(ctx context.Context) (Store, bool) {
	s, ok := ctx.Value(ctxKey{}).(Store)
	return s, ok && s != nil
}
