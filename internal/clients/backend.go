package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pribylovaa/event-booking/internal/models"
)

// maxErrorBody — сколько байт тела ответа с ошибкой сохраняется в StatusError.
const maxErrorBody = 4 << 10

// maxProfileBody — ограничение на размер ответа /auth/profile.
const maxProfileBody = 1 << 20

// ErrMalformedTokens — ответ login/refresh без полной пары токенов.
var ErrMalformedTokens = errors.New("malformed token response")

// StatusError — бэкенд ответил не-2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// IsAuthFailure — 401/403 от бэкенда: сессия недействительна.
func IsAuthFailure(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}

	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}

// Backend — JSON-клиент auth-эндпойнтов бэкенда для одной роли.
// Все пути строятся как baseURL + prefix + "/auth/...".
type Backend struct {
	baseURL string
	prefix  string
	hc      *http.Client
}

// NewBackend создаёт клиент роли. hc — неаутентифицированный клиент
// (refresh/logout/login не должны проходить через интерсептор обновления).
func NewBackend(baseURL, prefix string, hc *http.Client) *Backend {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  strings.TrimRight(prefix, "/"),
		hc:      hc,
	}
}

// Prefix — префикс путей роли.
func (b *Backend) Prefix() string { return b.prefix }

// URL — абсолютный адрес пути роли.
func (b *Backend) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return b.baseURL + b.prefix + path
}

// tokensEnvelope — {tokens:{accessToken,refreshToken}}.
type tokensEnvelope struct {
	Tokens models.TokenPair `json:"tokens"`
}

// Login — POST {prefix}/auth/login, успешные коды 200 и 201.
func (b *Backend) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "clients/Backend.Login"

	body := models.LoginRequest{Email: email, Password: password}
	resp, err := b.post(ctx, "/auth/login", body)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	pair, err := decodeTokens(resp.Body)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Refresh — POST {prefix}/auth/refresh-token; требует 200 и полную пару.
func (b *Backend) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "clients/Backend.Refresh"

	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	resp, err := b.post(ctx, "/auth/refresh-token", body)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	pair, err := decodeTokens(resp.Body)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Profile — GET {prefix}/auth/profile через аутентифицированный клиент hc.
func (b *Backend) Profile(ctx context.Context, hc *http.Client) (*models.Profile, error) {
	const op = "clients/Backend.Profile"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.URL("/auth/profile"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	p, err := models.DecodeProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Logout — POST {prefix}/auth/logout; любой 2xx считается успехом.
func (b *Backend) Logout(ctx context.Context, refreshToken string) error {
	const op = "clients/Backend.Logout"

	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	resp, err := b.post(ctx, "/auth/logout", body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, statusError(resp))
	}

	return nil
}

// ForgotPassword — POST {prefix}/auth/forgot-password, ожидается 201.
func (b *Backend) ForgotPassword(ctx context.Context, email string) error {
	const op = "clients/Backend.ForgotPassword"

	resp, err := b.post(ctx, "/auth/forgot-password", models.ForgotPasswordRequest{Email: email})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s: %w", op, statusError(resp))
	}

	return nil
}

func (b *Backend) post(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL(path), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return b.hc.Do(req)
}

func decodeTokens(r io.Reader) (models.TokenPair, error) {
	var env tokensEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %v", ErrMalformedTokens, err)
	}

	if !env.Tokens.Complete() {
		return models.TokenPair{}, ErrMalformedTokens
	}

	return env.Tokens, nil
}

// statusError читает начало тела ответа в StatusError.
func statusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
