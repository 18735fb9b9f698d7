package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	statusRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doctagger",
			Subsystem: "status",
			Name:      "request_duration_seconds",
			Help:      "Status server request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"route", "code"},
	)

	statusRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doctagger",
			Subsystem: "status",
			Name:      "requests_total",
			Help:      "Total number of status server requests",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(statusRequestDuration)
	prometheus.MustRegister(statusRequestsTotal)
}

// Middleware records status server request duration and count per chi route.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			code := strconv.Itoa(ww.status)
			statusRequestDuration.WithLabelValues(route, code).Observe(time.Since(start).Seconds())
			statusRequestsTotal.WithLabelValues(route, code).Inc()
		})
	}
}

// routeLabel keeps label cardinality bounded to registered routes.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
