package interceptors

import (
	"net/http"

	"github.com/pribylovaa/event-booking/internal/models"
)

// Tokens — источник и приёмник токенов одной роли (обычно — cookie-хранилище
// текущего запроса, привязанное к роли).
type Tokens interface {
	// Current читает токены в момент вызова; кэшировать результат нельзя.
	Current() models.TokenPair
	// Update записывает обе части пары вместе.
	Update(models.TokenPair)
}

// WithBearer выставляет Authorization: Bearer <access> из tokens на каждом вызове.
// Access-токен читается в момент вызова, а не при сборке клиента. Если токена нет —
// заголовок Authorization удаляется (чужие учётные данные не пробрасываются).
func WithBearer(tokens Tokens) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			out := req.Clone(req.Context())
			setBearer(out, tokens.Current().AccessToken)

			return next.RoundTrip(out)
		})
	}
}

func setBearer(req *http.Request, access string) {
	if access == "" {
		req.Header.Del("Authorization")
		return
	}

	req.Header.Set("Authorization", "Bearer "+access)
}
