package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/blogsphere/pkg/response"
)

const maxTrackedClients = 10000

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a token bucket per client IP. rps <= 0 disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)

	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if cl, ok := clients[ip]; ok {
			cl.lastSeen = now
			return cl.limiter
		}
		if len(clients) >= maxTrackedClients {
			// 淘汰一分钟没访问的客户端
			for k, v := range clients {
				if now.Sub(v.lastSeen) > time.Minute {
					delete(clients, k)
				}
			}
		}
		l := rate.NewLimiter(rate.Limit(rps), burst)
		clients[ip] = &clientLimiter{limiter: l, lastSeen: now}
		return l
	}

	return func(c *gin.Context) {
		if !get(c.ClientIP()).Allow() {
			response.Detail(c, http.StatusTooManyRequests, "Request was throttled.")
			c.Abort()
			return
		}
		c.Next()
	}
}
