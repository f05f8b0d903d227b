package locale

import (
	"net/http"

	"github.com/pribylovaa/event-booking/internal/metrics"
)

// Options — параметры мидлвара нормализации языка.
type Options struct {
	// Exclude — префиксы путей без нормализации; nil — DefaultExclude.
	Exclude []string
	Metrics *metrics.Metrics
}

// Middleware проставляет нормализованный язык в ответ (x-locale, x-locale-dir)
// и в запрос, который уходит рендерингу. Cookie не переписывается.
// Пути из Exclude проходят без изменений.
func Middleware(opts Options) func(http.Handler) http.Handler {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Excluded(r.URL.Path, exclude) {
				next.ServeHTTP(w, r)
				return
			}

			l := FromRequest(r)

			w.Header().Set(Header, l.String())
			w.Header().Set(DirHeader, l.Dir())

			// Значения клиента не доверяем: перезаписываем.
			r.Header.Set(Header, l.String())
			r.Header.Set(DirHeader, l.Dir())

			opts.Metrics.LocaleResolved(l.String())

			next.ServeHTTP(w, r)
		})
	}
}
