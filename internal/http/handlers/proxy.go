package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/event-booking/internal/errors"
	"github.com/pribylovaa/event-booking/internal/locale"
	"github.com/pribylovaa/event-booking/internal/models"
)

// Заголовки клиента, которые не уходят бэкенду: токены добавляет только
// интерсептор роли.
var strippedHeaders = []string{"Cookie", "Authorization"}

type targetKey struct{}

// BackendProxy проксирует /api[/admin]/backend/* в REST-ресурсы бэкенда роли
// через аутентифицированный транспорт (Bearer + обновление токенов).
//
// Тело запроса буферизуется (не больше MaxBodyBytes): после обновления токенов
// запрос повторяется с тем же телом. Set-Cookie бэкенда браузеру не отдаётся.
func (h *Handlers) BackendProxy(role models.Role) http.Handler {
	rl := h.role(role)

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			target, _ := pr.In.Context().Value(targetKey{}).(*url.URL)
			pr.Out.URL = target
			pr.Out.Host = ""
			for _, k := range strippedHeaders {
				pr.Out.Header.Del(k)
			}
			pr.SetXForwarded()
		},
		Transport: rl.Session.RequestTransport(),
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			return nil
		},
		ErrorHandler: apierrors.WriteError,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers/BackendProxy"

		target, err := url.Parse(rl.Backend.URL("/" + chi.URLParam(r, "*")))
		if err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("%s: %w: %v", op, apierrors.ErrInvalidArgument, err))
			return
		}
		target.RawQuery = r.URL.RawQuery

		if err := bufferBody(w, r, h.maxBody); err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, err))
			return
		}

		rp.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), targetKey{}, target)))
	})
}

// bufferBody читает тело целиком и выставляет GetBody для повтора запроса.
func bufferBody(w http.ResponseWriter, r *http.Request, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	r.ContentLength = int64(len(body))
	if len(body) == 0 {
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return nil
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	return nil
}

// RendererProxy — всё, что не API, уходит серверу рендеринга страниц.
// Ошибки соединения отдаются унифицированным JSON-ответом. Заголовки языка
// из ответа рендеринга отбрасываются: их проставляет locale.Middleware.
func RendererProxy(rendererURL string, base http.RoundTripper) (http.Handler, error) {
	const op = "handlers/RendererProxy"

	target, err := url.Parse(rendererURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse renderer url: %w", op, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%s: renderer url %q must be absolute", op, rendererURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
		},
		Transport: base,
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del(locale.Header)
			resp.Header.Del(locale.DirHeader)
			return nil
		},
		ErrorHandler: apierrors.WriteError,
	}, nil
}
