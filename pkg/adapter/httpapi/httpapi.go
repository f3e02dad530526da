// Package httpapi exposes the tool gateway over HTTP.
//
// The adapter is a thin translation layer: it authenticates nothing itself
// beyond reading the platform-established requester identity from a header,
// applies per-requester rate limiting, and maps domain errors to status
// codes. All access decisions stay in the gateway behind it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/atelierhq/wardenfs/internal/logger"
	"github.com/atelierhq/wardenfs/internal/ratelimiter"
	"github.com/atelierhq/wardenfs/pkg/gateway"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// RequesterHeader carries the authenticated requester identity, set by the
// platform front end before the request reaches this adapter.
const RequesterHeader = "X-Wardenfs-Requester"

// CorrelationHeader echoes the correlation id assigned to the request.
const CorrelationHeader = "X-Wardenfs-Correlation"

// maxRequestBytes bounds a request body: the content ceiling plus room for
// base64 expansion and the JSON envelope.
const maxRequestBytes = 8 << 20

// Config holds the HTTP adapter settings.
type Config struct {
	// BindAddress is the interface to listen on
	BindAddress string `mapstructure:"bind_address" validate:"required"`

	// Port is the TCP port to listen on
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RequestsPerSecond is the per-requester sustained rate; zero disables
	// rate limiting
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the per-requester burst capacity
	Burst uint `mapstructure:"burst"`

	// OrganizationID is stamped on every execution context
	OrganizationID string `mapstructure:"organization_id" validate:"required"`
}

// HTTPAdapter serves the tool gateway over HTTP.
type HTTPAdapter struct {
	cfg     Config
	gw      *gateway.Gateway
	limiter *ratelimiter.RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New builds the HTTP adapter over a gateway.
func New(cfg Config, gw *gateway.Gateway) *HTTPAdapter {
	return &HTTPAdapter{
		cfg:     cfg,
		gw:      gw,
		limiter: ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// executeRequest is the body of POST /v1/execute.
type executeRequest struct {
	Operation string       `json:"operation"`
	Args      gateway.Args `json:"args"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type executeResponse struct {
	Result any        `json:"result,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

// Serve binds the listener and blocks until the context is cancelled.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.BindAddress, strconv.Itoa(a.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.mu.Lock()
	a.server = server
	a.listener = listener
	a.mu.Unlock()

	logger.Info("http adapter listening on %s", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		timeout := a.cfg.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http adapter shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stop shuts the server down gracefully. Safe to call before Serve and
// more than once.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Transport implements adapter.Adapter.
func (a *HTTPAdapter) Transport() string {
	return "HTTP"
}

// Port returns the bound port, useful when configured with port 0.
func (a *HTTPAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return 0
	}
	return a.listener.Addr().(*net.TCPAddr).Port
}

func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler returns the execute handler for tests.
func (a *HTTPAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/execute", a.handleExecute)
	mux.HandleFunc("GET /v1/healthz", a.handleHealth)
	return mux
}

func (a *HTTPAdapter) handleExecute(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get(RequesterHeader)
	if requester == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing requester identity")
		return
	}

	if !a.limiter.Allow(requester) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "request rate limit exceeded")
		return
	}

	var req executeRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	ectx := workspace.NewExecutionContext(requester, a.cfg.OrganizationID)
	w.Header().Set(CorrelationHeader, ectx.CorrelationID)

	result, err := a.gw.Execute(r.Context(), ectx, req.Operation, req.Args)
	if err != nil {
		status, code := statusFor(err)
		logger.Debug("execute %s requester=%s correlation=%s: %v",
			req.Operation, requester, ectx.CorrelationID, err)
		writeError(w, status, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(executeResponse{Result: result}); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}

// statusFor maps a domain error to an HTTP status and a stable error code
// string. Identity mismatches and permission denials share a status so the
// response does not reveal which guard fired first.
func statusFor(err error) (int, string) {
	code, ok := workspace.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError, "internal"
	}
	switch code {
	case workspace.ErrIdentityMismatch:
		return http.StatusForbidden, "identity_mismatch"
	case workspace.ErrPermissionDenied:
		return http.StatusForbidden, "permission_denied"
	case workspace.ErrValidation:
		return http.StatusBadRequest, "validation"
	case workspace.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case workspace.ErrHandleExpired:
		return http.StatusGone, "handle_expired"
	default:
		return http.StatusInternalServerError, "io_error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(executeResponse{
		Error: &errorBody{Code: code, Message: message},
	})
}
