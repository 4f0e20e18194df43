package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by flow.",
		},
		[]string{"service", "flow", "result"},
	)

	AuditWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_audit_write_failures_total",
			Help: "Audit events that could not be persisted.",
		},
		[]string{"service", "event"},
	)

	OTPsIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_otps_issued_total",
			Help: "Total number of one-time codes issued.",
		},
	)

	AccountLocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_account_locks_total",
			Help: "Accounts locked after exhausting the OTP attempt budget.",
		},
	)

	PasswordResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_password_resets_total",
			Help: "Successfully completed password resets.",
		},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	AuthLoginsTotal = AuthLoginsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	AuditWriteFailuresTotal = AuditWriteFailuresTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthLoginsTotal,
		AuditWriteFailuresTotal,
		OTPsIssuedTotal,
		AccountLocksTotal,
		PasswordResetsTotal,
	)
}
