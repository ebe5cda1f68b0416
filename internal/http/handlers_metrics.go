package http

import (
	"fmt"
	"net/http"
	"time"
)

// handleMetrics reports request, rate limit, security and category cache
// counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_last_response_time_microseconds", "gauge", "Duration of the last completed request", traceMetrics.LastResponseTime)
	writeMetric(w, "rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	writeMetric(w, "rate_limit_clients", "gauge", "Clients currently tracked by the rate limiter", rateLimitMetrics.ClientCount)
	writeMetric(w, "security_suspicious_requests_total", "counter", "Requests flagged as suspicious", s.detector.SuspiciousRequests())

	if s.cacheStats != nil {
		stats := s.cacheStats.Stats()
		writeMetric(w, "category_cache_hits_total", "counter", "Category cache hits", stats.Hits)
		writeMetric(w, "category_cache_misses_total", "counter", "Category cache misses", stats.Misses)
		writeMetric(w, "category_cache_expired_total", "counter", "Category cache entries dropped after their TTL", stats.Expired)
		writeMetric(w, "category_cache_evicted_total", "counter", "Category cache entries dropped for capacity", stats.Evicted)
		writeMetric(w, "category_cache_entries", "gauge", "Category cache entries", stats.Entries)
	}

	writeMetric(w, "uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}

func writeMetric[N int | int64 | uint64](w http.ResponseWriter, name, kind, help string, value N) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
