// metrics - счётчики сессии: обновления токена, повторы запросов, выходы.
// Все методы безопасны на nil-получателе, чтобы метрики можно было не подключать.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "metrics_tracker"

// Значения лейблов.
const (
	ResultOK   = "ok"
	ResultFail = "fail"

	ReasonUser           = "user"
	ReasonRefreshFailed  = "refresh_failed"
	ReasonNoRefreshToken = "no_refresh_token"
)

type Session struct {
	refresh   *prometheus.CounterVec
	coalesced prometheus.Counter
	replay    *prometheus.CounterVec
	logout    *prometheus.CounterVec
}

// New регистрирует счётчики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Session {
	s := &Session{
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_refresh_total",
			Help:      "Token refresh calls by result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_refresh_coalesced_total",
			Help:      "Callers that joined an in-flight refresh instead of starting one.",
		}),
		replay: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_replay_total",
			Help:      "Requests replayed after a refresh, by replay outcome.",
		}, []string{"result"}),
		logout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_logout_total",
			Help:      "Session teardowns by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(s.refresh, s.coalesced, s.replay, s.logout)
	}

	return s
}

func (s *Session) RefreshDone(ok bool) {
	if s == nil {
		return
	}
	s.refresh.WithLabelValues(result(ok)).Inc()
}

func (s *Session) RefreshCoalesced() {
	if s == nil {
		return
	}
	s.coalesced.Inc()
}

// ReplayDone - ok: повтор завершился не 401.
func (s *Session) ReplayDone(ok bool) {
	if s == nil {
		return
	}
	s.replay.WithLabelValues(result(ok)).Inc()
}

func (s *Session) Logout(reason string) {
	if s == nil {
		return
	}
	s.logout.WithLabelValues(reason).Inc()
}

func result(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultFail
}
