// Package metrics exposes prometheus counters for the chat engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	// MessagesTotal counts inbound chat messages by classified intent.
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinichat",
			Name:      "messages_total",
			Help:      "Inbound chat messages by intent",
		},
		[]string{"intent"},
	)

	// BookingsTotal counts booking lifecycle events.
	BookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinichat",
			Name:      "bookings_total",
			Help:      "Booking lifecycle events",
		},
		[]string{"event"}, // confirmed, cancelled, rescheduled
	)

	// HoldsExpiredTotal counts reservation holds dropped by the sweeper.
	HoldsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinichat",
			Name:      "holds_expired_total",
			Help:      "Reservation holds expired before confirmation",
		},
	)

	// FAQTotal counts FAQ digressions by outcome.
	FAQTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinichat",
			Name:      "faq_total",
			Help:      "FAQ digressions by outcome",
		},
		[]string{"outcome"}, // answered, unmatched
	)

	// SessionsActive tracks live sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clinichat",
			Name:      "sessions_active",
			Help:      "Sessions currently alive",
		},
	)

	// RemindersSentTotal counts dispatched appointment reminders.
	RemindersSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinichat",
			Name:      "reminders_sent_total",
			Help:      "Appointment reminders dispatched",
		},
	)
)

// Register installs the collectors into the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MessagesTotal,
			BookingsTotal,
			HoldsExpiredTotal,
			FAQTotal,
			SessionsActive,
			RemindersSentTotal,
		)
	})
}
