package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pizzeria-service/internal/domain"
)

type collector struct {
	requestsTotal          *prometheus.CounterVec   // Общее количество HTTP запросов
	requestDurationSeconds *prometheus.HistogramVec // Распределение времени ответа HTTP запросов

	ordersPlacedTotal         prometheus.Counter     // Оформленные заказы
	paymentsCreatedTotal      prometheus.Counter     // Платежи, принятые шлюзом
	paymentsFinishedTotal     *prometheus.CounterVec // Завершённые платежи по статусу
	gatewayErrorsTotal        *prometheus.CounterVec // Ошибки вызовов шлюза по операции
	webhookNotificationsTotal *prometheus.CounterVec
}

// NewCollector регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) domain.MetricsCollector {
	factory := promauto.With(reg)

	c := &collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzeria_http_requests_total",
				Help: "Total number of processed HTTP requests.",
			},
			[]string{"method", "path", "status_code"},
		),
		requestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pizzeria_http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ordersPlacedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pizzeria_orders_placed_total",
				Help: "Total number of orders placed.",
			},
		),
		paymentsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pizzeria_payments_created_total",
				Help: "Total number of payments accepted by the gateway.",
			},
		),
		paymentsFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzeria_payments_finished_total",
				Help: "Total number of payments that reached a final status.",
			},
			[]string{"status"},
		),
		gatewayErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzeria_payment_gateway_errors_total",
				Help: "Total number of failed payment gateway calls.",
			},
			[]string{"operation"},
		),
		webhookNotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pizzeria_webhook_notifications_total",
				Help: "Total number of accepted payment notifications by event.",
			},
			[]string{"event"},
		),
	}
	return c
}

// IncRequestsTotal увеличивает счетчик общего количества HTTP запросов.
func (c *collector) IncRequestsTotal(method, path, statusCode string) {
	c.requestsTotal.WithLabelValues(method, path, statusCode).Inc()
}

// ObserveRequestDuration записывает значение времени выполнения HTTP запроса в гистограмму.
func (c *collector) ObserveRequestDuration(method, path string, duration float64) {
	c.requestDurationSeconds.WithLabelValues(method, path).Observe(duration)
}

func (c *collector) IncOrdersPlaced() {
	c.ordersPlacedTotal.Inc()
}

func (c *collector) IncPaymentsCreated() {
	c.paymentsCreatedTotal.Inc()
}

func (c *collector) IncPaymentsFinished(status domain.PaymentStatus) {
	c.paymentsFinishedTotal.WithLabelValues(string(status)).Inc()
}

func (c *collector) IncGatewayErrors(operation string) {
	c.gatewayErrorsTotal.WithLabelValues(operation).Inc()
}

func (c *collector) IncWebhookNotifications(event string) {
	c.webhookNotificationsTotal.WithLabelValues(event).Inc()
}

// NewRegistry возвращает реестр с метриками рантайма Go и процесса.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RunMetricsServer создает и возвращает сконфигурированный http.Server
func RunMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}
