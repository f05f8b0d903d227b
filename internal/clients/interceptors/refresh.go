package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/event-booking/internal/metrics"
	"github.com/pribylovaa/event-booking/internal/models"
	logctx "github.com/pribylovaa/event-booking/pkg/log"
)

// Refresher выпускает новую пару по refresh-токену (POST /auth/refresh-token).
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// RefreshError — обновление токенов не удалось; сессия роли уже завершена.
// Возвращается вместо исходного 401. Redirect — куда UI должен перейти.
type RefreshError struct {
	Role     models.Role
	Redirect string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Role, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// ErrNotReplayable — тело запроса нельзя переотправить (нет GetBody).
var ErrNotReplayable = errors.New("request body is not replayable")

type retriedKey struct{}

// WithRetried помечает логический запрос: попытка обновления уже была.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// Retried сообщает, было ли уже обновление для этого логического запроса.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// RefreshOptions — зависимости интерсептора обновления для одной роли.
type RefreshOptions struct {
	Role      models.Role
	Tokens    Tokens
	Refresher Refresher
	// OnFailure завершает сессию роли после неудачного обновления и возвращает
	// путь для редиректа. Может быть nil.
	OnFailure func(ctx context.Context) string
}

// WithRefresh — интерсептор прозрачного обновления токенов.
//
// Автомат для одного логического запроса:
//  1. ответ не 401 или ошибка транспорта — no-op;
//  2. 401 и запрос уже помечен (WithRetried) — 401 отдаётся как есть, повторных
//     обновлений нет;
//  3. 401, метки нет, refresh-токена нет — исходный 401 как есть;
//  4. 401, метки нет, refresh-токен есть — метка ставится, вызывается Refresher:
//     - успех: пара записывается в Tokens целиком, Authorization исходного
//     запроса переписывается, запрос повторяется ровно один раз; результат
//     повтора окончательный;
//     - неудача: OnFailure (logout) и *RefreshError вместо исходного 401.
//
// Отмена контекста вызывающим во время обновления не считается неудачей
// обновления: возвращается ошибка контекста, сессия не трогается.
//
// Ставится в цепочке после WithBearer: повтор уходит в next напрямую.
func WithRefresh(opts RefreshOptions) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			ctx := req.Context()
			if Retried(ctx) {
				return resp, nil
			}

			refreshToken := opts.Tokens.Current().RefreshToken
			if refreshToken == "" {
				return resp, nil
			}

			l := logctx.From(ctx).With(slog.String("role", opts.Role.String()))

			replay, err := rewind(req)
			if err != nil {
				l.Warn("token_refresh_skipped", slog.String("err", err.Error()))
				return resp, nil
			}
			discard(resp)

			ctx = WithRetried(ctx)
			pair, err := opts.Refresher.Refresh(ctx, refreshToken)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				l.Warn("token_refresh_failed", slog.String("err", err.Error()))

				var redirect string
				if opts.OnFailure != nil {
					redirect = opts.OnFailure(ctx)
				}

				return nil, &RefreshError{Role: opts.Role, Redirect: redirect, Err: err}
			}

			opts.Tokens.Update(pair)
			l.Debug("token_refreshed")

			replay = replay.WithContext(ctx)
			setBearer(replay, pair.AccessToken)

			return next.RoundTrip(replay)
		})
	}
}

// rewind готовит копию запроса с новым телом для повтора.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}

	if req.GetBody == nil {
		return nil, ErrNotReplayable
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReplayable, err)
	}
	out.Body = body

	return out, nil
}

// Coalesce объединяет конкурентные обновления одной роли с одним и тем же
// refresh-токеном в один вызов бэкенда; все ждущие получают его результат.
//
// Общий вызов отвязан от отмены контекста первого вызывающего
// (context.WithoutCancel), каждый ждущий уходит по своему ctx. Ограничение
// времени общего вызова — на стороне http.Client бэкенда.
func Coalesce(role models.Role, r Refresher, m *metrics.Metrics) Refresher {
	return &coalescer{role: role, next: r, metrics: m}
}

type coalescer struct {
	role    models.Role
	next    Refresher
	metrics *metrics.Metrics
	group   singleflight.Group
}

func (c *coalescer) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	key := c.role.String() + ":" + refreshToken

	ch := c.group.DoChan(key, func() (any, error) {
		return c.next.Refresh(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case <-ctx.Done():
		c.metrics.TokenRefresh(c.role.String(), metrics.RefreshCanceled)
		return models.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.metrics.TokenRefresh(c.role.String(), metrics.RefreshFailure)
			return models.TokenPair{}, res.Err
		}

		outcome := metrics.RefreshSuccess
		if res.Shared {
			outcome = metrics.RefreshShared
		}
		c.metrics.TokenRefresh(c.role.String(), outcome)

		return res.Val.(models.TokenPair), nil
	}
}
