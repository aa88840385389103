// Package metrics exposes the storefront's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes
const (
	CheckoutSuccess           = "success"
	CheckoutEmptyCart         = "empty_cart"
	CheckoutInsufficientStock = "insufficient_stock"
	CheckoutError             = "error"
)

// Metrics holds every collector the service records into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	orderValue      prometheus.Histogram
	cartAdds        prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"result"}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "order_total_value",
			Help:      "Total value of placed orders.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		cartAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_additions_total",
			Help:      "Successful add-to-cart operations.",
		}),
	}

	reg.MustRegister(m.requests, m.requestDuration, m.checkouts, m.orderValue, m.cartAdds)
	return m
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCheckout records a checkout outcome; total is only used on success
func (m *Metrics) ObserveCheckout(result string, total float64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
	if result == CheckoutSuccess {
		m.orderValue.Observe(total)
	}
}

func (m *Metrics) IncCartAdd() {
	if m == nil {
		return
	}
	m.cartAdds.Inc()
}
