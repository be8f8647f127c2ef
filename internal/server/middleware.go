package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/attendance-tracker/internal/common"
)

const requestIDKey = "request_id"

// RequestID reuses X-Request-ID when the caller sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs one line per request at a level picked by status code.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		switch {
		case status >= 500:
			logger.Error("http.request", attrs...)
		case status >= 400:
			logger.Warn("http.request", attrs...)
		default:
			logger.Info("http.request", attrs...)
		}
	}
}

func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("http.panic",
					"error", err,
					"request_id", GetRequestID(c),
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: "INTERNAL", Error: "internal server error", RequestID: GetRequestID(c)})
			}
		}()
		c.Next()
	}
}

// Auth accepts either the static API token or an HS256 JWT signed with jwtSecret.
// With both empty every request passes.
func Auth(token, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" && jwtSecret == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortError(c, common.NewAppError("UNAUTHORIZED", "bearer token required", common.ErrUnauthorized))
			return
		}
		bearer := parts[1]

		if token != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(token)) == 1 {
			c.Next()
			return
		}
		if jwtSecret != "" {
			claims := &jwt.RegisteredClaims{}
			parsed, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err == nil && parsed.Valid {
				c.Set("subject", claims.Subject)
				c.Next()
				return
			}
		}
		abortError(c, common.NewAppError("UNAUTHORIZED", "invalid or expired token", common.ErrUnauthorized))
	}
}

type rateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	lastReset time.Time
	rate      int
	window    time.Duration
}

// RateLimit allows rate requests per client IP per fixed window. A non-positive
// rate disables it.
func RateLimit(rate int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	l := &rateLimiter{counts: map[string]int{}, lastReset: time.Now(), rate: rate, window: window}
	return func(c *gin.Context) {
		if l.rate <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()

		l.mu.Lock()
		if time.Since(l.lastReset) > l.window {
			l.counts = map[string]int{}
			l.lastReset = time.Now()
		}
		n := l.counts[ip]
		if n >= l.rate {
			l.mu.Unlock()
			logger.Warn("http.rate_limited", "client_ip", ip, "request_id", GetRequestID(c))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Code: "RATE_LIMITED", Error: "rate limit exceeded", RequestID: GetRequestID(c)})
			return
		}
		l.counts[ip] = n + 1
		l.mu.Unlock()

		c.Next()
	}
}
