// -------------------------------------------------------------------------------
// Middleware - Request Logging, Metrics and Health Gating
//
// Project: KCloud / Author: Alex Freidah
//
// Cross-cutting request handling: structured access logs, Prometheus request
// instrumentation, OTEL request spans, and the database health gate that
// fails fast with 503 while the record store circuit breaker is open.
// -------------------------------------------------------------------------------

package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// requestMiddleware logs and instruments every request. The route template
// (not the raw path) labels the metrics, keeping cardinality bounded.
func requestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		telemetry.InflightRequests.WithLabelValues(method).Inc()
		defer telemetry.InflightRequests.WithLabelValues(method).Dec()

		ctx, span := telemetry.StartSpan(c.Request.Context(),
			method+" "+c.FullPath(),
			telemetry.RequestAttributes(method, c.Request.URL.Path, c.ClientIP())...,
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		telemetry.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		telemetry.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
		if c.Request.ContentLength > 0 {
			telemetry.RequestSize.WithLabelValues(method).Observe(float64(c.Request.ContentLength))
		}

		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		logger := slog.Info
		if status >= http.StatusInternalServerError {
			logger = slog.Error
		} else if status >= http.StatusBadRequest {
			logger = slog.Warn
		}
		logger("request",
			"method", method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes_in", c.Request.ContentLength,
		)
	}
}

// healthChecker reports whether the record store is currently usable.
type healthChecker interface {
	IsHealthy() bool
}

// dbGateMiddleware rejects requests immediately while the record store
// breaker is open; waiting on a dead database helps nobody.
func dbGateMiddleware(health healthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !health.IsHealthy() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{
				Message:   "the database is currently unavailable",
				ErrorCode: faults.DBConnection.Code(),
			})
			return
		}
		c.Next()
	}
}
