package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"claimledger/internal/ratelimit/metrics"
	"claimledger/pkg/platform/httputil"
	"claimledger/pkg/requestcontext"
)

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	RetryAfter  int    `json:"retry_after"`
}

// Middleware admits requests per client IP. Store failures fail open.
type Middleware struct {
	store    Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// NewMiddleware allows limit requests per client IP in any window. A
// non-positive limit disables limiting.
func NewMiddleware(store Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if limit <= 0 || store == nil {
		m.disabled = true
	}
	if m.disabled && logger != nil {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		result, err := m.store.AllowN(ctx, "ip:"+ip, 1, m.limit, m.window)
		if err != nil {
			m.metrics.IncrementStoreErrors()
			if m.logger != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
			}
			next.ServeHTTP(w, r)
			return
		}

		m.metrics.IncrementDecision(result.Allowed)
		addHeaders(w, result)
		if !result.Allowed {
			if m.logger != nil {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", ip,
					"path", r.URL.Path,
				)
			}
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
				Error:       "rate_limit_exceeded",
				Description: "Too many requests from this address. Please try again later.",
				RetryAfter:  result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
