package sandbox

import (
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Faults makes the sandbox behave like a slow and unreliable backend so the
// portal's failure paths can be exercised
type Faults struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64 // 0-1, probability a request fails with 503

	// rand and sleep are replaced in tests
	rand  func() float64
	sleep func(time.Duration)
}

// NewFaults creates a fault profile
func NewFaults(minLatency, maxLatency time.Duration, failureRate float64) *Faults {
	return &Faults{
		MinLatency:  minLatency,
		MaxLatency:  maxLatency,
		FailureRate: failureRate,
		rand:        rand.Float64,
		sleep:       time.Sleep,
	}
}

func (f *Faults) latency() time.Duration {
	spread := f.MaxLatency - f.MinLatency
	if spread <= 0 {
		return f.MinLatency
	}
	return f.MinLatency + time.Duration(f.rand()*float64(spread))
}

// Middleware delays every API request and fails some of them
func (f *Faults) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		logger := log.With().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()

		if d := f.latency(); d > 0 {
			logger.Debug().Dur("latency", d).Msg("simulated backend latency")
			f.sleep(d)
		}

		if f.FailureRate > 0 && f.rand() < f.FailureRate {
			logger.Warn().
				Float64("failure_rate", f.FailureRate).
				Msg("simulated backend failure")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		c.Next()
	}
}
