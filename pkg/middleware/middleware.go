package middleware

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/innovest-portal/internal/auth"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/pkg/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.RWMutex

	// Configure limits per endpoint type
	authLimit   = rate.Limit(10.0 / 60.0)  // 10 requests per minute
	actionLimit = rate.Limit(30.0 / 60.0)  // 30 bid submissions/acceptances per minute
	viewLimit   = rate.Limit(600.0 / 60.0) // 600 requests per minute
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func limitFor(method, path string) rate.Limit {
	switch {
	case strings.HasPrefix(path, "/api/v1/auth/token"):
		return authLimit
	case method == "POST" && (strings.HasSuffix(path, "/bids") || strings.HasSuffix(path, "/accept")):
		return actionLimit
	case strings.HasPrefix(path, "/api/v1/"):
		return viewLimit
	default:
		return rate.Inf // No limit for other paths
	}
}

func getLimiter(method, path, clientID string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	key := clientID + ":" + method + ":" + path
	v, exists := visitors[key]

	if !exists {
		v = &visitor{
			limiter:  rate.NewLimiter(limitFor(method, path), 3),
			lastSeen: time.Now(),
		}
		visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// clientKey identifies the caller for rate limiting: the session when one is
// attached or carried by a valid bearer token, else the client IP
func clientKey(c *gin.Context, authService *auth.Service) string {
	if sess, ok := session.FromGin(c); ok {
		return "sid:" + sess.ID
	}
	if authService != nil {
		if token, ok := bearerToken(c); ok {
			if claims, err := authService.ValidateToken(token); err == nil && claims.SessionID != "" {
				return "sid:" + claims.SessionID
			}
		}
	}
	return "ip:" + c.ClientIP()
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// RateLimit applies a token bucket per client and route. It runs ahead of
// SessionAuth, so signed-in callers are told apart by the session id in their
// token.
func RateLimit(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := clientKey(c, authService)

		limiter := getLimiter(c.Request.Method, c.FullPath(), clientID)
		if !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}

// RequestLogger assigns a request id, forwards it to backend calls and logs
// each request once it completes
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), requestID))

		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// SessionAuth resolves the bearer token to a live session and attaches it to
// the request
func SessionAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Invalid authorization header")
			return
		}

		sess, err := authService.Authenticate(token)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSessionExpired):
				response.Unauthorized(c, "Session expired")
			case errors.Is(err, session.ErrSessionNotFound):
				response.Unauthorized(c, "Session ended")
			default:
				response.Unauthorized(c, "Invalid token")
			}
			return
		}

		c.Set(session.ContextKey, sess)
		c.Next()
	}
}

// RequireRole rejects sessions acting for a different side of the marketplace
func RequireRole(role session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromGin(c)
		if !ok {
			response.Unauthorized(c, "Missing session")
			return
		}
		if sess.Role != role {
			response.Forbidden(c, "This action requires the "+string(role)+" role")
			return
		}
		c.Next()
	}
}
