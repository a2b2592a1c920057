package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/security"
)

// identityKey is the gin context key carrying the resolved ActingIdentity
const identityKey = "acting_identity"

// AuthMiddleware resolves the bearer token into an ActingIdentity. The token
// only proves who the caller is; the user row is loaded fresh so deactivated
// accounts are rejected immediately.
func AuthMiddleware(tokens *security.TokenProvider, users port.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortUnauthorized(c, "unknown user")
			return
		}
		if !user.Active {
			abortUnauthorized(c, "account deactivated")
			return
		}

		c.Set(identityKey, entity.ActingIdentity{
			UserID:        user.ID,
			InstitutionID: user.InstitutionID,
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Message: message,
		Code:    http.StatusUnauthorized,
	})
}

// IdentityFromContext returns the ActingIdentity resolved by AuthMiddleware
func IdentityFromContext(c *gin.Context) (entity.ActingIdentity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return entity.ActingIdentity{}, false
	}
	identity, ok := value.(entity.ActingIdentity)
	return identity, ok
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusone_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusone_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// MetricsMiddleware records request counts and latency per route. The route
// template (not the raw path) is used so ids do not explode the label space.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(
			c.Request.Method, route,
		).Observe(time.Since(start).Seconds())
	}
}
