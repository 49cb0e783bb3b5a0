package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ration_slots",
			Name:      "booking_create_total",
			Help:      "Count of booking create attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingCancel = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ration_slots",
			Name:      "booking_cancel_total",
			Help:      "Count of bookings withdrawn by households.",
		},
	)

	bookingFulfill = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ration_slots",
			Name:      "booking_fulfill_total",
			Help:      "Count of bookings marked fulfilled by administrators.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreate, bookingCancel, bookingFulfill)
	})
}

func IncBookingCreate(outcome string) {
	bookingCreate.WithLabelValues(outcome).Inc()
}

func IncBookingCancel() {
	bookingCancel.Inc()
}

func IncBookingFulfill() {
	bookingFulfill.Inc()
}
