package middleware

import (
	"net/http"

	"github.com/pribylovaa/event-booking/internal/credentials"
)

// Credentials создаёт cookie-хранилище токенов на время запроса и кладёт его
// в контекст (credentials.Into). Хранилище пишет Set-Cookie в этот же ответ.
func Credentials(opts credentials.Options) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := credentials.New(w, r, opts)
			next.ServeHTTP(w, r.WithContext(credentials.Into(r.Context(), store)))
		})
	}
}
