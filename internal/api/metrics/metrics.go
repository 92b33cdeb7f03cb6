// Package metrics defines the custom Prometheus metrics of the social API.
// All metrics are registered with the default registry on package init
// through promauto and are served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "social"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts wallet logins.
// Labels:
//   - variant: "user" or "admin"
//   - result: "ok", "unauthorized", "forbidden" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of wallet login attempts, by variant and result.",
	},
	[]string{"variant", "result"},
)

// SignupsTotal counts signup requests.
// Label:
//   - result: "ok" or the domain error kind (e.g. "duplicate", "validation")
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup requests, by result.",
	},
	[]string{"result"},
)

// ── Social metrics ────────────────────────────────────────────────────────────

// SocialVerificationsTotal counts social proof checks.
// Labels:
//   - platform: "twitter", "reddit" or "facebook"
//   - result: "ok", the domain error kind (e.g. "proof_not_found", "duplicate")
//     or "error"
var SocialVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "social_verifications_total",
		Help:      "Total number of social account verifications, by platform and result.",
	},
	[]string{"platform", "result"},
)

// ── Settlement metrics ────────────────────────────────────────────────────────

// SweepTransfersTotal counts escrowed posts handled by a sweep.
// Label:
//   - result: "ok" (transferred), "skipped" (nothing to move) or "failed"
var SweepTransfersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_transfers_total",
		Help:      "Total number of escrow transfers, by result.",
	},
	[]string{"result"},
)

// ── Background task metrics ───────────────────────────────────────────────────

// BackgroundTasksTotal counts finished background tasks.
// Labels:
//   - task: task name (e.g. "seed_balances", "escrow_sweep")
//   - result: "ok", "failed", "skipped" (already done) or "dropped" (queue full)
var BackgroundTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "background_tasks_total",
		Help:      "Total number of background tasks, by name and result.",
	},
	[]string{"task", "result"},
)

// TaskQueueDepth tracks the tasks waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var TaskQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "task_queue_depth",
		Help:      "Current number of tasks pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - route: registered route path (e.g. "/wallets/:id/nonce")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)
