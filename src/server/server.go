package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/auth"
	"tradeengine/src/engine"
	"tradeengine/src/handler"
	"tradeengine/src/notify"
	"tradeengine/src/repository"
)

// Deps carries everything the HTTP layer exposes.
type Deps struct {
	Engine        *engine.Engine
	Positions     *repository.PositionRepository
	Notifications *repository.NotificationRepository
	Activities    *repository.ActivityRepository
	Hub           *notify.Hub
	UserID        string
}

// NewRouter builds the chi router for the trade API.
func NewRouter(deps Deps) *chi.Mux {
	authConfig := auth.GetConfig()

	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" error")
		}
	})

	r.Post("/trades", handler.SubmitTradeHandler(deps.Engine))
	r.Delete("/orders/{id}", handler.CancelOrderHandler(deps.Engine))
	r.Get("/positions/open", handler.ListOpenHandler(deps.Positions))
	r.Get("/positions/history", handler.HistoryHandler(deps.Positions))
	r.Get("/statistics", handler.StatisticsHandler(deps.Engine))
	r.Get("/notifications", handler.NotificationsHandler(deps.Notifications, deps.UserID))
	r.Get("/activity", handler.ActivityHandler(deps.Activities, deps.UserID))

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeWS)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(authConfig.AdminTokenHash))
		r.Post("/admin/positions/{id}/override", handler.OverrideHandler(deps.Engine))
	})

	return r
}

// StartServer serves the API until SIGINT or SIGTERM, then shuts down
// gracefully.
func StartServer(port string, deps Deps) {
	r := NewRouter(deps)

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
