package interceptors

import (
	"net/http"
)

type CtxKey string

const (
	// CtxRequestID — id входящего запроса; его кладёт middleware.RequestID.
	CtxRequestID CtxKey = "request_id"
)

// WithMetadata добавляет в исходящий вызов заголовки:
//   - x-request-id (если есть в контексте и не задан явно),
//   - user-agent (если передан параметром).
func WithMetadata(userAgent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var rid string
			if v := req.Context().Value(CtxRequestID); v != nil {
				rid, _ = v.(string)
			}

			setRID := rid != "" && req.Header.Get("X-Request-Id") == ""
			if !setRID && userAgent == "" {
				return next.RoundTrip(req)
			}

			out := req.Clone(req.Context())
			if setRID {
				out.Header.Set("X-Request-Id", rid)
			}
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
