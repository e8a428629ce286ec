package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	xlogger "MomentumScreener/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds request collectors registered on one registry.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers request collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "class"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "screener_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
			// Screen requests run the whole pipeline and can take tens of seconds.
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route", "method"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "screener_http_in_flight_requests",
			Help: "HTTP requests currently being served",
		}),
	}
}

// Middleware records each request and logs server errors and slow requests.
func (m *HTTPMetrics) Middleware(l *xlogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	if l == nil {
		l = xlogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			err := next(c)

			route, method := routeLabel(c), c.Request().Method
			code := statusOf(c, err)
			elapsed := time.Since(start)
			m.requests.WithLabelValues(route, method, statusClass(code)).Inc()
			m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())

			if code >= 500 || (slowThreshold > 0 && elapsed >= slowThreshold) {
				fields := []xlogger.Field{
					xlogger.String("route", route),
					xlogger.String("method", method),
					xlogger.String("status", strconv.Itoa(code)),
					xlogger.Duration("duration_ms", elapsed),
				}
				if code >= 500 {
					l.Error("http request failed", fields...)
				} else {
					l.Warn("http request slow", fields...)
				}
			}
			return err
		}
	}
}

func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}

// routeLabel uses the route template so path parameters do not become labels.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
