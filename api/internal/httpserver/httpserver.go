// Package httpserver wires the HTTP routes and middleware and runs the server.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"drawcal/api/internal/handle"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Handle *handle.Handle
	// Auth guards the session routes. Without it the /auth routes are not mounted.
	Auth           func(http.Handler) http.Handler
	GoogleRoutes   bool
	RequireAuth    bool
	AllowedOrigins []string
	DB             Pinger
	// Mount adds extra routes, keyed by ServeMux pattern.
	Mount  map[string]http.Handler
	Logger *zap.Logger
}

func New(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := opts.Handle

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Server is running"})
	})
	mux.HandleFunc("GET /healthz", healthz(opts.DB))

	for pattern, handler := range opts.Mount {
		mux.Handle(pattern, handler)
	}
	if h == nil {
		return accessLog(recoverer(cors(mux, opts.AllowedOrigins), logger), logger)
	}

	var process http.Handler = http.HandlerFunc(h.Process)
	if opts.RequireAuth && opts.Auth != nil {
		process = opts.Auth(process)
	}
	mux.Handle("POST /calculator/process", process)

	if opts.Auth != nil {
		protect := func(f http.HandlerFunc) http.Handler { return opts.Auth(f) }
		mux.HandleFunc("POST /auth/login", h.Login)
		mux.Handle("GET /auth/verify", protect(h.Verify))
		mux.Handle("GET /auth/session/check", protect(h.SessionCheck))
		mux.Handle("POST /auth/logout", protect(h.Logout))
		mux.Handle("GET /auth/user/profile", protect(h.Profile))
		if opts.GoogleRoutes {
			mux.HandleFunc("GET /auth/google/login", h.GoogleLogin)
			mux.HandleFunc("GET /auth/google/callback", h.GoogleCallback)
		}
	}

	return accessLog(recoverer(cors(mux, opts.AllowedOrigins), logger), logger)
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Run listens on addr and serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, logger)
}

func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
