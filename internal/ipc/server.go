package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/surface"
	"github.com/adamancini/glint/internal/types"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// ErrorResponse is the body of every failed HTTP invocation
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Options configure a Server
type Options struct {
	// AllowedOrigins lists the origins browsers may call the bridge from.
	// Empty allows any origin.
	AllowedOrigins []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server exposes a Router and a surface Registry over HTTP
type Server struct {
	router   *Router
	surfaces *surface.Registry
	opts     Options
}

// NewServer creates a bridge server
func NewServer(router *Router, surfaces *surface.Registry, opts Options) *Server {
	return &Server{
		router:   router,
		surfaces: surfaces,
		opts:     opts,
	}
}

// Handler returns the bridge HTTP handler
func (s *Server) Handler() http.Handler {
	rootRouter := mux.NewRouter()
	rootRouter.HandleFunc("/ipc/{channel}", s.handleInvoke).Methods(http.MethodPost, http.MethodOptions)
	rootRouter.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	rootRouter.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.opts.Gatherer != nil {
		rootRouter.Handle("/metrics", promhttp.HandlerFor(
			s.opts.Gatherer,
			promhttp.HandlerOpts{EnableOpenMetrics: true})).Methods(http.MethodGet)
	}

	corsMiddleware := cors.AllowAll()
	if len(s.opts.AllowedOrigins) > 0 {
		corsMiddleware = cors.New(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		})
	}
	return corsMiddleware.Handler(rootRouter)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on an existing listener until ctx is cancelled
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("bridge listening on %s", listener.Addr())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.surfaces.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("bridge stopped")
	return nil
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	channel, err := types.ParseChannel(mux.Vars(r)["channel"])
	if err != nil || !channel.IsInvoke() {
		writeErrorResponse(w, fmt.Sprintf("unknown channel %q", mux.Vars(r)["channel"]), http.StatusNotFound)
		return
	}

	args, err := readArgs(r.Body)
	if err != nil {
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.router.Invoke(r.Context(), channel, args)
	if err != nil {
		writeInvokeError(w, err)
		return
	}

	writeJSONObject(w, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONObject(w, map[string]interface{}{
		"status":   "ok",
		"surfaces": s.surfaces.Len(),
		"channels": s.router.Channels(),
	})
}

// readArgs decodes an optional JSON array of arguments
func readArgs(body io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("request body must be a JSON array of arguments: %w", err)
	}
	return args, nil
}

func writeInvokeError(w http.ResponseWriter, err error) {
	var argErr *ArgumentError
	switch {
	case errors.Is(err, ErrUnknownChannel):
		writeErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &argErr):
		writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSONObject writes an object to the HTTP response in JSON format
func writeJSONObject(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// writeErrorResponse writes an error in JSON format
func writeErrorResponse(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Code: status}); err != nil {
		log.Errorf("failed to encode error response: %v", err)
	}
}
