// Package server assembles the HTTP router and runs the service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskchat/taskchat/internal/config"
	"github.com/taskchat/taskchat/internal/handler/chat"
	"github.com/taskchat/taskchat/internal/handler/tasks"
	"github.com/taskchat/taskchat/internal/httputil"
	"github.com/taskchat/taskchat/internal/logging"
	"github.com/taskchat/taskchat/internal/middleware"
	"github.com/taskchat/taskchat/internal/recurring"
	"github.com/taskchat/taskchat/internal/svc"
	"github.com/taskchat/taskchat/internal/types"
)

// Run starts the service and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, c config.Config) error {
	svcCtx, err := svc.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	var sweeper *recurring.Sweeper
	if c.Recurring.Enabled {
		sweeper, err = recurring.NewSweeper(svcCtx.Tasks, c.Recurring.Spec)
		if err != nil {
			return fmt.Errorf("recurring sweeper: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           NewRouter(svcCtx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("[server] listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Infof("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(svcCtx *svc.ServiceContext) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(svcCtx.Config.RequestTimeout()))

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/{userId}", func(r chi.Router) {
		r.Use(middleware.JWTAuth(svcCtx.Config.Auth.AccessSecret, svcCtx.Config.Auth.Issuer))

		r.Post("/chat", chat.SendMessageHandler(svcCtx))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.ListHandler(svcCtx))
			r.Post("/", tasks.CreateHandler(svcCtx))
			r.Get("/{taskId}", tasks.GetHandler(svcCtx))
			r.Put("/{taskId}", tasks.UpdateHandler(svcCtx))
			r.Delete("/{taskId}", tasks.DeleteHandler(svcCtx))
			r.Patch("/{taskId}/complete", tasks.CompleteHandler(svcCtx))
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.OkJSON(w, types.HealthResponse{Status: "healthy"})
}
