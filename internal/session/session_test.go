package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/event-booking/internal/clients"
	"github.com/pribylovaa/event-booking/internal/credentials"
	"github.com/pribylovaa/event-booking/internal/models"
)

// fakeBackend — REST-бэкенд с auth-эндпойнтами обеих ролей.
// Профиль отдаётся только с актуальным access-токеном роли.
type fakeBackend struct {
	mu sync.Mutex

	access  map[string]string // prefix -> валидный access
	refresh map[string]string // prefix -> валидный refresh
	issued  int

	refreshFails  bool
	profileStatus int    // != 0 — профиль всегда отвечает этим кодом
	profileBody   string // тело успешного профиля

	calls map[string]int // "prefix path" -> количество вызовов
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		access:      map[string]string{"": "ua1", "/admin": "aa1"},
		refresh:     map[string]string{"": "ur1", "/admin": "ar1"},
		profileBody: `{"id":"u-1","email":"jane@example.com","name":"Jane"}`,
		calls:       map[string]int{},
	}
}

func (f *fakeBackend) count(prefix, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[prefix+" "+path]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix, path := "", r.URL.Path
	if strings.HasPrefix(path, "/admin/") {
		prefix, path = "/admin", strings.TrimPrefix(path, "/admin")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[prefix+" "+path]++

	w.Header().Set("Content-Type", "application/json")

	switch path {
	case "/auth/profile":
		if f.profileStatus != 0 {
			w.WriteHeader(f.profileStatus)
			_, _ = io.WriteString(w, `{}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+f.access[prefix] {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, f.profileBody)

	case "/auth/refresh-token":
		var in struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if f.refreshFails || in.RefreshToken != f.refresh[prefix] {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.issued++
		f.access[prefix] = prefix + "-access-" + string(rune('0'+f.issued))
		f.refresh[prefix] = prefix + "-refresh-" + string(rune('0'+f.issued))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tokens": models.TokenPair{AccessToken: f.access[prefix], RefreshToken: f.refresh[prefix]},
		})

	case "/auth/logout":
		w.WriteHeader(http.StatusCreated)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, srv *httptest.Server, role models.Role) *Manager {
	t.Helper()

	prefix, login := "", "/login"
	if role == models.RoleAdmin {
		prefix, login = "/admin", "/admin/login"
	}

	api := clients.NewBackend(srv.URL, prefix, srv.Client())

	return New(api, Options{
		Role:      role,
		LoginPath: login,
		Base:      srv.Client().Transport,
		Timeout:   time.Second,
		UserAgent: "web-gateway-test",
		Logger:    silentLogger(),
	})
}

func cookieOpts() credentials.Options {
	return credentials.Options{
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		User:     credentials.Policy{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		Admin:    credentials.Policy{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
	}
}

func newCookieStore(t *testing.T, cookies map[string]string) (*credentials.CookieStore, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rr := httptest.NewRecorder()

	return credentials.New(rr, req, cookieOpts()), rr
}

func setCookieNames(rr *httptest.ResponseRecorder) []string {
	var out []string
	for _, c := range (&http.Response{Header: rr.Header()}).Cookies() {
		out = append(out, c.Name)
	}
	return out
}

func newServer(t *testing.T, f *fakeBackend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoggedIn_NoTokens_NoNetwork(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)

	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		m := newTestManager(t, srv, role)
		store, rr := newCookieStore(t, nil)

		res := m.LoggedIn(context.Background(), store)
		require.Nil(t, res.Profile)
		require.Empty(t, res.Redirect)
		require.Empty(t, setCookieNames(rr))
	}

	require.Zero(t, f.total())
}

func TestLoggedIn_ValidAccess_ReturnsProfile(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, rr := newCookieStore(t, map[string]string{"accessToken": "ua1", "refreshToken": "ur1"})

	res := m.LoggedIn(context.Background(), store)
	require.NotNil(t, res.Profile)
	require.Equal(t, "u-1", res.Profile.ID)
	require.Equal(t, 1, f.count("", "/auth/profile"))
	require.Zero(t, f.count("", "/auth/refresh-token"))
	require.Empty(t, setCookieNames(rr))
}

func TestLoggedIn_StaleAccess_RefreshesOnceAndReplays(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, rr := newCookieStore(t, map[string]string{"accessToken": "expired", "refreshToken": "ur1"})

	res := m.LoggedIn(context.Background(), store)
	require.NotNil(t, res.Profile)
	require.Equal(t, "jane@example.com", res.Profile.Email)

	require.Equal(t, 1, f.count("", "/auth/refresh-token"))
	require.Equal(t, 2, f.count("", "/auth/profile"))

	pair := store.Get(models.RoleUser)
	require.Equal(t, "-access-1", pair.AccessToken)
	require.Equal(t, "-refresh-1", pair.RefreshToken)
	require.ElementsMatch(t, []string{"accessToken", "refreshToken"}, setCookieNames(rr))
}

func TestLoggedIn_SecondUnauthorized_NoSecondRefresh(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.profileStatus = http.StatusUnauthorized
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, _ := newCookieStore(t, map[string]string{"accessToken": "expired", "refreshToken": "ur1"})

	res := m.LoggedIn(context.Background(), store)
	require.Nil(t, res.Profile)
	require.Equal(t, "/login", res.Redirect)

	require.Equal(t, 1, f.count("", "/auth/refresh-token"))
	require.Equal(t, 2, f.count("", "/auth/profile"))
	require.True(t, store.Get(models.RoleUser).Empty())
}

func TestLoggedIn_RefreshFails_ClearsAndRedirects(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.refreshFails = true
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleAdmin)

	store, rr := newCookieStore(t, map[string]string{"accessTokenAdmin": "expired", "refreshTokenAdmin": "ar1"})

	res := m.LoggedIn(context.Background(), store)
	require.Nil(t, res.Profile)
	require.Equal(t, "/admin/login", res.Redirect)

	require.True(t, store.Get(models.RoleAdmin).Empty())
	require.Equal(t, 1, f.count("/admin", "/auth/refresh-token"))
	require.Equal(t, 1, f.count("/admin", "/auth/logout"))
	require.ElementsMatch(t, []string{"refreshTokenAdmin", "accessTokenAdmin"}, setCookieNames(rr))
}

func TestLoggedIn_OnlyRefreshToken_RefreshThenProfile(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, _ := newCookieStore(t, map[string]string{"refreshToken": "ur1"})

	res := m.LoggedIn(context.Background(), store)
	require.NotNil(t, res.Profile)
	require.Equal(t, 1, f.count("", "/auth/refresh-token"))
	require.Equal(t, 1, f.count("", "/auth/profile"))
	require.True(t, store.Get(models.RoleUser).Complete())
}

func TestLoggedIn_OnlyRefreshToken_RefreshFails(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, _ := newCookieStore(t, map[string]string{"refreshToken": "revoked"})

	res := m.LoggedIn(context.Background(), store)
	require.Nil(t, res.Profile)
	require.Equal(t, "/login", res.Redirect)
	require.Zero(t, f.count("", "/auth/profile"))
	require.True(t, store.Get(models.RoleUser).Empty())
}

func TestLoggedIn_RoleIsolation(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	f.refreshFails = true
	srv := newServer(t, f)
	admin := newTestManager(t, srv, models.RoleAdmin)

	store, rr := newCookieStore(t, map[string]string{
		"accessToken":       "ua1",
		"refreshToken":      "ur1",
		"accessTokenAdmin":  "expired",
		"refreshTokenAdmin": "ar1",
	})

	res := admin.LoggedIn(context.Background(), store)
	require.Equal(t, "/admin/login", res.Redirect)

	require.Equal(t, models.TokenPair{AccessToken: "ua1", RefreshToken: "ur1"}, store.Get(models.RoleUser))
	for _, name := range setCookieNames(rr) {
		require.True(t, strings.HasSuffix(name, "Admin"), name)
	}
	require.Zero(t, f.count("", "/auth/refresh-token"))
}

func TestLoggedIn_TransientFailure_KeepsCookies(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{name: "5xx", status: http.StatusBadGateway},
		{name: "malformed profile", body: `"not-an-object"`},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeBackend()
			f.profileStatus = tc.status
			if tc.body != "" {
				f.profileBody = tc.body
			}
			srv := newServer(t, f)
			m := newTestManager(t, srv, models.RoleUser)

			store, rr := newCookieStore(t, map[string]string{"accessToken": "ua1", "refreshToken": "ur1"})

			res := m.LoggedIn(context.Background(), store)
			require.Nil(t, res.Profile)
			require.Empty(t, res.Redirect)
			require.Empty(t, setCookieNames(rr))
			require.Equal(t, models.TokenPair{AccessToken: "ua1", RefreshToken: "ur1"}, store.Get(models.RoleUser))
		})
	}
}

func TestLoggedIn_BackendDown_Transient(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := httptest.NewServer(f)
	m := newTestManager(t, srv, models.RoleUser)
	srv.Close()

	store, rr := newCookieStore(t, map[string]string{"accessToken": "ua1", "refreshToken": "ur1"})

	res := m.LoggedIn(context.Background(), store)
	require.Nil(t, res.Profile)
	require.Empty(t, res.Redirect)
	require.Empty(t, setCookieNames(rr))
}

func TestLogout_IdempotentOnEmptyStore(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleAdmin)

	store, _ := newCookieStore(t, nil)

	nav := m.Logout(context.Background(), store)
	require.Equal(t, "/admin/login", nav.Redirect)
	nav = m.Logout(context.Background(), store)
	require.Equal(t, "/admin/login", nav.Redirect)

	require.Zero(t, f.total())
	require.True(t, store.Get(models.RoleAdmin).Empty())
}

func TestLogout_NotifiesBackend_AndClears(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	store, rr := newCookieStore(t, map[string]string{"accessToken": "ua1", "refreshToken": "ur1"})

	nav := m.Logout(context.Background(), store)
	require.Equal(t, "/login", nav.Redirect)
	require.Equal(t, 1, f.count("", "/auth/logout"))
	require.True(t, store.Get(models.RoleUser).Empty())
	require.Equal(t, []string{"refreshToken", "accessToken"}, setCookieNames(rr))
}

func TestRequestTransport_UsesStoreFromContext(t *testing.T) {
	t.Parallel()

	f := newFakeBackend()
	srv := newServer(t, f)
	m := newTestManager(t, srv, models.RoleUser)

	hc := &http.Client{Transport: m.RequestTransport()}

	// Без хранилища в контексте.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/profile", nil)
	require.NoError(t, err)
	_, err = hc.Do(req)
	require.ErrorIs(t, err, ErrNoStore)

	store, _ := newCookieStore(t, map[string]string{"accessToken": "expired", "refreshToken": "ur1"})
	req, err = http.NewRequestWithContext(credentials.Into(context.Background(), store), http.MethodGet, srv.URL+"/auth/profile", nil)
	require.NoError(t, err)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.count("", "/auth/refresh-token"))
	require.Equal(t, "-access-1", store.Get(models.RoleUser).AccessToken)
}
