package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jordanhw/menu-sync-backend/internal/config"
	"github.com/jordanhw/menu-sync-backend/internal/hub"
	"github.com/jordanhw/menu-sync-backend/internal/ws"
	"github.com/jordanhw/menu-sync-backend/pkg/metrics"
)

func SetupRoutes(h *hub.Hub, cfg config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/", Index(cfg.StaticDir))
	r.Post("/rooms", CreateRoom(h, log))
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", ws.Handler(h, cfg.RoomKey, log))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}
