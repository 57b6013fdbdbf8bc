package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/escrowledger/internal/metrics"
)

func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newRecorder(w)

			next.ServeHTTP(rec, r)

			metrics.RecordHTTPRequest(r.Method, strconv.Itoa(rec.status), time.Since(start).Seconds())
		})
	}
}
