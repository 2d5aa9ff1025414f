package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ogurasousui/codex-user-admin/internal/core/user"
)

// RequestObserver は HTTP リクエストの計測値を受け取ります。
type RequestObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// RouterOptions はルーターの依存です。nil のフィールドは無効になります。
type RouterOptions struct {
	Logger         *slog.Logger
	Observer       RequestObserver
	MetricsHandler http.Handler
}

// NewRouter は HTTP ゲートウェイのルーターを構築します。
func NewRouter(svc user.UseCase, opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users := NewUserHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(logger, opts.Observer))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Get("/", users.List)
		r.Post("/", users.Create)
		r.Get("/{id}", users.Get)
		r.Patch("/{id}", users.Update)
		r.Delete("/{id}", users.Delete)
		r.Put("/{id}/role", users.UpdateRole)
	})

	return r
}

// accessLog は 1 リクエストごとに slog へ記録し、observer に計測値を渡します。
func accessLog(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}

				level := slog.LevelInfo
				if status >= 500 {
					level = slog.LevelError
				} else if status >= 400 {
					level = slog.LevelWarn
				}

				logger.LogAttrs(r.Context(), level, "http request",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("route", route),
					slog.Int("status_code", status),
					slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
				)

				if observer != nil {
					observer.ObserveHTTP(r.Method, route, status, elapsed)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
