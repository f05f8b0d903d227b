// interceptors предоставляет набор клиентских интерсепторов для исходящих
// HTTP-вызовов шлюза к бэкенду: метаданные, таймаут, Bearer, обновление токенов,
// логирование.
//
// Интерсептор — обёртка над http.RoundTripper. Контракт RoundTripper соблюдается:
// входящий *http.Request не модифицируется, изменения делаются на клоне.
package interceptors

import (
	"io"
	"net/http"
)

// Interceptor оборачивает следующий RoundTripper цепочки.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain собирает цепочку: первый интерсептор — внешний.
// base == nil — http.DefaultTransport; nil-интерсепторы пропускаются.
func Chain(base http.RoundTripper, its ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(its) - 1; i >= 0; i-- {
		if its[i] != nil {
			base = its[i](base)
		}
	}

	return base
}

// discard дочитывает и закрывает тело, чтобы соединение вернулось в пул.
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
