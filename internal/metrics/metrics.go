package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	OrdersCreated      *prometheus.CounterVec
	OrdersSettled      *prometheus.CounterVec
	CheckoutRejections *prometheus.CounterVec
	OTPEvents          *prometheus.CounterVec
	SMSMessages        *prometheus.CounterVec
	Logins             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Orders persisted at checkout, by payment method.",
			}, []string{"payment_method"}),
			OrdersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_settled_total",
				Help:      "Orders whose payment was settled, by settlement path.",
			}, []string{"path"}),
			CheckoutRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_rejections_total",
				Help:      "Checkouts rejected before commit, by reason.",
			}, []string{"reason"}),
			OTPEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_events_total",
				Help:      "OTP issue and verification outcomes.",
			}, []string{"event"}),
			SMSMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sms_messages_total",
				Help:      "Outgoing SMS messages by kind and outcome.",
			}, []string{"kind", "status"}),
			Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by session kind and outcome.",
			}, []string{"kind", "status"}),
		}

		prometheus.MustRegister(
			metricsInstance.OrdersCreated,
			metricsInstance.OrdersSettled,
			metricsInstance.CheckoutRejections,
			metricsInstance.OTPEvents,
			metricsInstance.SMSMessages,
			metricsInstance.Logins,
		)
	})
	return metricsInstance
}
