package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the abuse-prevention core. Registered on the default
// registerer and scraped through the /metrics endpoint.
var (
	TokenRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "auth",
		Name:      "token_rejections_total",
		Help:      "Tokens rejected during request authentication, by stage.",
	}, []string{"stage"})

	AccountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "auth",
		Name:      "account_lockouts_total",
		Help:      "Accounts transitioned into the locked state.",
	})

	IPBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "auth",
		Name:      "ip_blocks_total",
		Help:      "Source addresses that crossed the block threshold.",
	})

	RegistrationThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blog",
		Subsystem: "auth",
		Name:      "registrations_throttled_total",
		Help:      "Registration attempts denied by the per-IP limiter.",
	})
)
