package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nisHanRam/Placify-Backend/internal/service/place"
	"github.com/nisHanRam/Placify-Backend/internal/service/user"
	"github.com/nisHanRam/Placify-Backend/internal/ws"
)

// Options tunes router behaviour.
type Options struct {
	// RequireAuth demands a bearer token on place writes and enforces
	// ownership.
	RequireAuth bool
	// RequestTimeout bounds each non-streaming request. Zero disables it.
	RequestTimeout time.Duration
	// DBHealth is probed by /healthz when set.
	DBHealth func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	places   place.Service
	users    user.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	opts     Options

	registry           *prometheus.Registry
	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, placeSvc place.Service, userSvc user.Service, hub *ws.Hub, limiter RateLimiter, opts Options) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		places: placeSvc,
		users:  userSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		opts:     opts,
		registry: prometheus.NewRegistry(),
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.route("GET /healthz", "/healthz", r.handleHealthz)
	r.route("GET /metrics", "/metrics", r.metricsHandler())

	r.route("GET /places/user/{uid}", "/places/user/{uid}", r.timed(r.limit(browsePolicy, r.handle(r.handleListUserPlaces))))
	r.route("GET /places/{pid}", "/places/{pid}", r.timed(r.limit(browsePolicy, r.handle(r.handleGetPlace))))
	r.route("POST /places", "/places", r.timed(r.placeWrite(r.handle(r.handleCreatePlace))))
	r.route("PATCH /places/{pid}", "/places/{pid}", r.timed(r.placeWrite(r.handle(r.handleUpdatePlace))))
	r.route("DELETE /places/{pid}", "/places/{pid}", r.timed(r.placeWrite(r.handle(r.handleDeletePlace))))

	r.route("GET /users", "/users", r.timed(r.limit(browsePolicy, r.handle(r.handleListUsers))))
	r.route("POST /users/signup", "/users/signup", r.timed(r.limit(signupPolicy, r.handle(r.handleSignup))))
	r.route("POST /users/login", "/users/login", r.timed(r.limit(loginPolicy, r.handle(r.handleLogin))))

	r.route("GET /ws/places", "/ws/places", r.limit(streamPolicy, r.handle(r.handlePlacesWS)))
	r.route("GET /events/places", "/events/places", r.limit(streamPolicy, r.handle(r.handlePlacesSSE)))

	r.route("/", "unmatched", r.handle(func(http.ResponseWriter, *http.Request) error {
		return errRouteNotFound
	}))
}

// route registers a handler behind audit logging and panic recovery. label
// names the route in metrics.
func (r *Router) route(pattern, label string, next http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(label, r.recoverPanics(next)))
}

// placeWrite limits place mutations, authenticating first when required so
// the limit follows the account.
func (r *Router) placeWrite(next http.HandlerFunc) http.HandlerFunc {
	if r.opts.RequireAuth {
		return r.requireAuth(r.limit(placeWritePolicy, next))
	}
	return r.limit(placeWritePolicy, next)
}

// timed bounds the request context by the configured timeout.
func (r *Router) timed(next http.HandlerFunc) http.HandlerFunc {
	if r.opts.RequestTimeout <= 0 {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), r.opts.RequestTimeout)
		defer cancel()
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.opts.DBHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.opts.DBHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(label string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, label, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Started reports whether a status line has been sent.
func (sr *statusRecorder) Started() bool {
	return sr.status != 0
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		conn, rw, err := h.Hijack()
		if err == nil && sr.status == 0 {
			sr.status = http.StatusSwitchingProtocols
		}
		return conn, rw, err
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
