// metrics — Prometheus-метрики сервиса: HTTP-запросы, операции с токенами, ответы чата.
// Все методы Metrics безопасны для nil-получателя: без метрик вызовы ничего не делают.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "career_advisor"

// Исходы операций с токенами.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// Исходы ответов чата.
const (
	ChatAI       = "ai"
	ChatFallback = "fallback"
)

type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	tokenOps     *prometheus.CounterVec
	chatReplies  *prometheus.CounterVec
	quizResults  prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tokenOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_operations_total",
			Help:      "Token manager operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		chatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Chat replies by source (ai or fallback).",
		}, []string{"source"}),
		quizResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "results_saved_total",
			Help:      "Quiz results persisted.",
		}),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.tokenOps, m.chatReplies, m.quizResults)

	return m
}

// ObserveHTTP фиксирует завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}

	if route == "" {
		route = "unmatched"
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Token фиксирует операцию менеджера токенов (issue/verify/rotate/revoke).
func (m *Metrics) Token(op, outcome string) {
	if m == nil {
		return
	}

	m.tokenOps.WithLabelValues(op, outcome).Inc()
}

// Chat фиксирует источник ответа чата.
func (m *Metrics) Chat(source string) {
	if m == nil {
		return
	}

	m.chatReplies.WithLabelValues(source).Inc()
}

// QuizResultSaved фиксирует сохранённый результат теста.
func (m *Metrics) QuizResultSaved() {
	if m == nil {
		return
	}

	m.quizResults.Inc()
}
