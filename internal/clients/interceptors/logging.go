package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	logctx "github.com/pribylovaa/event-booking/pkg/log"
)

// Logging — логирование исходящих вызовов к бэкенду.
// Поведение:
//   - вытягивает X-Request-Id из заголовков запроса (или генерирует новый и добавляет);
//   - добавляет поля method/host/path, прокладывает обогащённый логгер в контекст (pkg/log);
//   - пишет одну финальную запись уровня Info: msg="http_out", status, dur
//     (или Warn с err, если транспорт вернул ошибку).
//
// Безопасность: не логирует тело, Authorization и cookie.
func Logging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			out := req
			rid := req.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
				out = req.Clone(req.Context())
				out.Header.Set("X-Request-Id", rid)
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("host", req.URL.Host),
				slog.String("path", req.URL.Path),
			)
			out = out.WithContext(logctx.Into(out.Context(), l))

			resp, err := next.RoundTrip(out)
			if err != nil {
				l.Warn("http_out",
					slog.String("err", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return nil, err
			}

			l.Info("http_out",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
