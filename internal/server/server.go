package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"musiccatalog/internal/auth"
	"musiccatalog/internal/catalog"
	"musiccatalog/internal/collection"
	"musiccatalog/internal/config"
	"musiccatalog/internal/database"
	"musiccatalog/internal/review"
	"musiccatalog/internal/transcode"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Services bundles the domain services exposed over HTTP
type Services struct {
	Auth        *auth.Service
	Catalog     *catalog.Service
	Collections *collection.Service
	Reviews     *review.Service
	Files       *transcode.Pipeline
}

// CatalogServer is the HTTP front of the music catalog
type CatalogServer struct {
	db          *database.Database
	config      *config.Config
	auth        *auth.Service
	catalog     *catalog.Service
	collections *collection.Service
	reviews     *review.Service
	files       *transcode.Pipeline
	logger      *logrus.Logger
	httpServer  *http.Server
}

// NewCatalogServer creates a new server instance
func NewCatalogServer(cfg *config.Config, db *database.Database, services Services, logger *logrus.Logger) *CatalogServer {
	cs := &CatalogServer{
		db:          db,
		config:      cfg,
		auth:        services.Auth,
		catalog:     services.Catalog,
		collections: services.Collections,
		reviews:     services.Reviews,
		files:       services.Files,
		logger:      logger,
	}
	cs.httpServer = &http.Server{
		Addr:         cfg.GetAddress(),
		Handler:      cs.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	return cs
}

// Router builds the complete handler tree
func (cs *CatalogServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cs.requestIDMiddleware)
	r.Use(cs.requestLoggingMiddleware)
	r.Use(cs.panicRecoveryMiddleware)
	r.Use(cs.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		cs.respondWithError(w, r, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		cs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/", cs.handleHome)
	r.Get("/health", cs.handleHealthCheck)
	r.Get("/config", cs.handleGetConfig)

	r.Route("/auth/users", func(r chi.Router) {
		r.Get("/", cs.handleListUsers)
		r.Post("/", cs.handleCreateUser)
	})

	r.Route("/artists", func(r chi.Router) {
		r.Get("/", cs.handleListArtists)
		r.With(cs.requireAdmin).Post("/", cs.handleCreateArtist)
	})

	r.Route("/genres", func(r chi.Router) {
		r.Get("/", cs.handleListGenres)
		r.With(cs.requireAdmin).Post("/", cs.handleCreateGenre)
	})

	r.Route("/music-items", func(r chi.Router) {
		r.Get("/", cs.handleListMusicItems)
		r.Get("/{itemID}", cs.handleGetMusicItem)

		r.Group(func(r chi.Router) {
			r.Use(cs.requireAdmin)
			r.Post("/", cs.handleCreateMusicItem)
			r.Put("/{itemID}", cs.handleUpdateMusicItem)
			r.Patch("/{itemID}", cs.handleUpdateMusicItem)
			r.Delete("/{itemID}", cs.handleDeleteMusicItem)
		})
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/item/{itemID}", cs.handleListItemReviews)
		r.With(cs.requireUser).Post("/", cs.handleUpsertReview)
		r.With(cs.requireUser).Delete("/{reviewID}", cs.handleDeleteReview)
	})

	r.Route("/users/{userID}/collection", func(r chi.Router) {
		r.Get("/", cs.handleGetCollection)

		r.Group(func(r chi.Router) {
			r.Use(cs.requireUser)
			r.Post("/{itemID}", cs.handleAddToCollection)
			r.Patch("/{itemID}", cs.handleUpdateCollectionEntry)
			r.Delete("/{itemID}", cs.handleRemoveFromCollection)
		})
	})

	r.Route("/files/tracks/{trackID}/file", func(r chi.Router) {
		r.With(cs.requireAdmin).Post("/", cs.handleUploadTrackFile)
		r.With(cs.requireUser).Get("/", cs.handleDownloadTrackFile)
	})

	return r
}

// Start serves HTTP until Shutdown is called
func (cs *CatalogServer) Start() error {
	cs.logger.WithField("address", cs.httpServer.Addr).Info("Music catalog server starting")

	if err := cs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (cs *CatalogServer) Shutdown(ctx context.Context) error {
	cs.logger.Info("Shutting down music catalog server")
	return cs.httpServer.Shutdown(ctx)
}
