// metrics — Prometheus-счётчики сессионного слоя шлюза.
//
// Все методы nil-safe: компоненты, собранные без метрик (тесты, утилиты),
// просто ничего не пишут.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gateway"

// Исходы обновления токенов.
const (
	RefreshSuccess  = "success"
	RefreshShared   = "shared" // ответ получен из чужого in-flight обновления
	RefreshFailure  = "failure"
	RefreshCanceled = "canceled"
)

// Metrics агрегирует счётчики шлюза.
type Metrics struct {
	tokenRefresh   *prometheus.CounterVec
	logout         *prometheus.CounterVec
	sessionResolve *prometheus.CounterVec
	localeResolved *prometheus.CounterVec
}

// New регистрирует счётчики в reg. reg == nil — prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		tokenRefresh: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		logout: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logout_total",
			Help:      "Logouts by role and reason.",
		}, []string{"role", "reason"}),
		sessionResolve: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolve_total",
			Help:      "Session resolutions by role and result.",
		}, []string{"role", "result"}),
		localeResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locale_resolved_total",
			Help:      "Normalized locales stamped on page requests.",
		}, []string{"locale"}),
	}
}

func (m *Metrics) TokenRefresh(role, outcome string) {
	if m == nil {
		return
	}
	m.tokenRefresh.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) Logout(role, reason string) {
	if m == nil {
		return
	}
	m.logout.WithLabelValues(role, reason).Inc()
}

func (m *Metrics) SessionResolve(role, result string) {
	if m == nil {
		return
	}
	m.sessionResolve.WithLabelValues(role, result).Inc()
}

func (m *Metrics) LocaleResolved(locale string) {
	if m == nil {
		return
	}
	m.localeResolved.WithLabelValues(locale).Inc()
}
