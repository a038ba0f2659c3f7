package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxRequestsPerMin int           `json:"max_requests_per_min" yaml:"max_requests_per_min"`
	AllowedOrigins    []string      `json:"allowed_origins" yaml:"allowed_origins"`
	TrustedProxies    []string      `json:"trusted_proxies" yaml:"trusted_proxies"`
	RequestTimeout    time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxUploadBytes    int64         `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxQueryLength    int           `json:"max_query_length" yaml:"max_query_length"`
	LimiterIdleTTL    time.Duration `json:"limiter_idle_ttl" yaml:"limiter_idle_ttl"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxRequestsPerMin: 120,
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8501"},
		TrustedProxies:    []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout:    30 * time.Second,
		MaxUploadBytes:    32 << 20,
		MaxQueryLength:    100,
		LimiterIdleTTL:    time.Hour,
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SecurityMiddleware provides the HTTP hardening middleware
type SecurityMiddleware struct {
	config SecurityConfig

	mu         sync.Mutex
	ipLimiters map[string]*ipLimiter

	// OnRateLimited is called for every rejected request when set
	OnRateLimited func()
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		config:     config,
		ipLimiters: make(map[string]*ipLimiter),
	}
}

// ValidateQueryValue checks a free-text query parameter such as a country name
func (sm *SecurityMiddleware) ValidateQueryValue(name, value string) error {
	if sm.config.MaxQueryLength > 0 && len(value) > sm.config.MaxQueryLength {
		return fmt.Errorf("%s exceeds maximum length of %d characters", name, sm.config.MaxQueryLength)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s contains invalid UTF-8 encoding", name)
	}
	return nil
}

func (sm *SecurityMiddleware) limiterFor(ip string, now time.Time) *rate.Limiter {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entry, exists := sm.ipLimiters[ip]
	if !exists {
		rps := rate.Limit(float64(sm.config.MaxRequestsPerMin) / 60.0)
		burst := sm.config.MaxRequestsPerMin / 2
		if burst < 5 {
			burst = 5
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(rps, burst)}
		sm.ipLimiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// RateLimitByIP implements per-IP rate limiting
func (sm *SecurityMiddleware) RateLimitByIP(c *gin.Context) {
	if sm.config.MaxRequestsPerMin <= 0 {
		c.Next()
		return
	}

	limiter := sm.limiterFor(c.ClientIP(), time.Now())
	if !limiter.Allow() {
		if sm.OnRateLimited != nil {
			sm.OnRateLimited()
		}
		c.Header("Retry-After", "60")
		apperrors.Abort(c, apperrors.NewRateLimitError("60"))
		return
	}

	c.Next()
}

// LimiterCount returns the number of tracked client IPs
func (sm *SecurityMiddleware) LimiterCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.ipLimiters)
}

// RunCleanup drops limiters of idle clients until ctx is done
func (sm *SecurityMiddleware) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sm.cleanupOldLimiters(now)
		}
	}
}

func (sm *SecurityMiddleware) cleanupOldLimiters(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for ip, entry := range sm.ipLimiters {
		if now.Sub(entry.lastSeen) > sm.config.LimiterIdleTTL {
			delete(sm.ipLimiters, ip)
			removed++
		}
	}
	return removed
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")

	if c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// the swagger UI needs inline scripts and styles; the API itself serves none
	if strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
	} else {
		c.Header("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
	}

	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

	c.Next()
}

var allowedContentTypes = []string{
	"application/json",
	"multipart/form-data",
	"text/csv",
}

// ValidateContentType rejects request bodies the API cannot read
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	if contentType != "" {
		found := false
		for _, allowed := range allowedContentTypes {
			if strings.Contains(contentType, allowed) {
				found = true
				break
			}
		}

		if !found {
			appErr := apperrors.NewValidationError("Unsupported content type", contentType)
			appErr.HTTPStatus = http.StatusUnsupportedMediaType
			apperrors.Abort(c, appErr)
			return
		}
	}

	c.Next()
}

// LimitUploadSize caps the request body
func (sm *SecurityMiddleware) LimitUploadSize(c *gin.Context) {
	if sm.config.MaxUploadBytes > 0 {
		if c.Request.ContentLength > sm.config.MaxUploadBytes {
			appErr := apperrors.NewValidationError("Upload too large", fmt.Sprintf("limit is %d bytes", sm.config.MaxUploadBytes))
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			apperrors.Abort(c, appErr)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxUploadBytes)
	}
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORS returns the gin-contrib/cors middleware for the configured origins
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range sm.config.AllowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			break
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = sm.config.AllowedOrigins
		if len(cfg.AllowOrigins) == 0 {
			cfg.AllowOrigins = []string{"http://localhost"}
		}
	}

	return cors.New(cfg)
}
