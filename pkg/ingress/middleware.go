package ingress

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/podcore/pkg/httpheader"
	"github.com/cuemby/podcore/pkg/log"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds request rate per client.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// AccessControlConfig bounds which client addresses may reach the service.
type AccessControlConfig struct {
	AllowedIPs []string
	DeniedIPs  []string
}

// Middleware applies per-client rate limiting and IP access control ahead
// of the storage service's routing, as a single process-wide policy, since
// a pod server has one storage service rather than many proxied upstreams.
type Middleware struct {
	trustProxyHeaders bool
	rateLimiters      map[string]*rate.Limiter
	mu                sync.RWMutex
}

// NewMiddleware creates a new middleware handler.
func NewMiddleware(trustProxyHeaders bool) *Middleware {
	return &Middleware{
		trustProxyHeaders: trustProxyHeaders,
		rateLimiters:      make(map[string]*rate.Limiter),
	}
}

// CheckRateLimit reports whether the request should proceed given config.
func (m *Middleware) CheckRateLimit(r *http.Request, config *RateLimitConfig) bool {
	if config == nil {
		return true
	}

	clientIP := httpheader.ClientIP(r, m.trustProxyHeaders)

	m.mu.Lock()
	limiter, exists := m.rateLimiters[clientIP]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
		m.rateLimiters[clientIP] = limiter
	}
	m.mu.Unlock()

	allowed := limiter.Allow()
	if !allowed {
		log.Warn("rate limit exceeded for " + clientIP)
	}
	return allowed
}

// CheckAccessControl reports whether the request's client IP is allowed by
// config, and a reason string when it is not.
func (m *Middleware) CheckAccessControl(r *http.Request, config *AccessControlConfig) (bool, string) {
	if config == nil {
		return true, ""
	}

	clientIP := httpheader.ClientIP(r, m.trustProxyHeaders)
	ip := net.ParseIP(clientIP)
	if ip == nil {
		log.Warn("invalid client IP: " + clientIP)
		return false, "invalid client IP"
	}

	for _, cidr := range config.DeniedIPs {
		if matchCIDR(ip, cidr) {
			return false, "access denied by IP filter"
		}
	}

	if len(config.AllowedIPs) > 0 {
		for _, cidr := range config.AllowedIPs {
			if matchCIDR(ip, cidr) {
				return true, ""
			}
		}
		return false, "access denied by IP filter"
	}

	return true, ""
}

// CleanupRateLimiters drops accumulated per-client limiters once their
// number grows unreasonable. Call periodically (see StartCleanupJob).
func (m *Middleware) CleanupRateLimiters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rateLimiters) > 10000 {
		log.Info("clearing rate limiters")
		m.rateLimiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanupJob starts a background goroutine that calls
// CleanupRateLimiters hourly until ctx-equivalent shutdown (the caller is
// expected to let the process exit to stop it).
func (m *Middleware) StartCleanupJob() {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			m.CleanupRateLimiters()
		}
	}()
}

func matchCIDR(ip net.IP, cidr string) bool {
	if !strings.Contains(cidr, "/") {
		parsedIP := net.ParseIP(cidr)
		if parsedIP == nil {
			return false
		}
		return ip.Equal(parsedIP)
	}

	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		log.Warn("invalid CIDR: " + cidr)
		return false
	}
	return ipNet.Contains(ip)
}
