package interceptors

import (
	"context"
	"io"
	"net/http"
	"time"
)

// WithTimeout ограничивает исходящий вызов таймаутом d.
//
// Контракт:
//  1. d <= 0 — не модифицирует запрос;
//  2. у ctx уже есть deadline — действует более ранний из двух (дедлайн
//     входящего запроса и now+d);
//  3. cancel вызывается при закрытии тела ответа (или сразу, если вызов
//     вернул ошибку), иначе тело обрывалось бы на выходе из RoundTrip.
func WithTimeout(d time.Duration) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if d <= 0 {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, cancel := context.WithTimeout(req.Context(), d)
			resp, err := next.RoundTrip(req.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			if resp.Body == nil {
				cancel()
				return resp, nil
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
