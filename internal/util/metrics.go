package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	}, []string{"payment_method"})

	ReservationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_rejected_total",
		Help: "Total number of rejected reservation requests",
	}, []string{"reason"})

	ReservationsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed",
	})

	ReservationsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total number of reservations cancelled",
	})

	ReservationsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_completed_total",
		Help: "Total number of reservations completed by the sweep",
	})

	HoldsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holds_expired_total",
		Help: "Total number of payment holds expired by the sweep",
	})

	AvailabilityConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_conflicts_total",
		Help: "Total number of date-range conflicts on reserve",
	})

	AvailabilityReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_reserve_latency_seconds",
		Help:    "Latency of atomic availability reserve operations",
		Buckets: prometheus.DefBuckets,
	})

	WebhookDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_duplicates_total",
		Help: "Total number of duplicate gateway callbacks acknowledged",
	})

	PaymentIntentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Total number of payment intents created",
	})

	RefundsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_issued_total",
		Help: "Total number of refunds issued",
	})

	RefundRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refund_retries_total",
		Help: "Total number of refund attempts retried after gateway errors",
	})

	GatewayCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	RewardPointsCreditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reward_points_credited_total",
		Help: "Total reward points credited",
	})

	RewardPointsReversedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reward_points_reversed_total",
		Help: "Total reward points reversed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
