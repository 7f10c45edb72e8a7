package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lbre/imgbatch/internal/archive"
	"github.com/lbre/imgbatch/internal/cleanup"
	"github.com/lbre/imgbatch/internal/config"
	"github.com/lbre/imgbatch/internal/convert"
	"github.com/lbre/imgbatch/internal/database"
	"github.com/lbre/imgbatch/internal/handler"
	"github.com/lbre/imgbatch/internal/imgcodec"
	"github.com/lbre/imgbatch/internal/quota"
	"github.com/lbre/imgbatch/internal/storage"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	Router chi.Router
}

// New wires the conversion pipeline behind a fully configured chi router.
func New(db database.Database, store storage.Store, codec imgcodec.Codec, quotaStore quota.Store, cfg *config.Config) *Server {
	conv := convert.New(codec, store, convert.Limits{
		MaxWidth:        cfg.MaxWidth,
		MaxHeight:       cfg.MaxHeight,
		MaxPixels:       cfg.MaxPixels,
		FileTimeout:     cfg.FileTimeout,
		QualityCapBytes: cfg.QualityCapBytes,
		QualityCap:      cfg.QualityCap,
		Concurrency:     cfg.Concurrency,
	})

	h := &handler.Handler{
		Store:     store,
		DB:        db,
		Quota:     quotaStore,
		QuotaKey:  quota.CompositeKey,
		Converter: conv,
		Archiver:  archive.New(store.ArchiveDir(), cfg.MaxArchiveBytes),
		Cleaner:   cleanup.New(store),
		Config:    cfg,
	}

	r := chi.NewRouter()

	// CORS must come before other middleware to handle preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", h.Convert)
		r.Get("/formats", h.Formats)
		r.Get("/stats", h.Stats)
	})

	// Archive download; extension-allowlisted inside the handler.
	r.Get("/temp/{filename}", h.Download)

	return &Server{Router: r}
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("health: failed to encode response", "error", err)
	}
}
