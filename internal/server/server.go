package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/recipeapp/apiserver/config"
	"github.com/recipeapp/apiserver/internal/db"
	"github.com/recipeapp/apiserver/internal/logging"
	"github.com/recipeapp/apiserver/internal/mq"
	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/internal/storage"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
)

// Server wraps the HTTP server, the router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	storage    *storage.Storage
	mq         *mq.MQ
}

// New connects to the database, object storage and broker described by cfg
// and wires the HTTP routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = objects.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	attrRepo := store.NewAttributeRepository(dbConn)
	recipeRepo := store.NewRecipeRepository(dbConn)

	recipeOpts := []services.RecipeOption{}
	if broker != nil {
		recipeOpts = append(recipeOpts, services.WithEvents(services.NewEvents(broker, cfg.MQ.RecipeChannel)))
	}

	deps := Dependencies{
		Config:      cfg,
		DB:          dbConn,
		Users:       services.NewUserService(userRepo),
		Tags:        services.NewAttributeService(types.AttributeTag, attrRepo),
		Ingredients: services.NewAttributeService(types.AttributeIngredient, attrRepo),
		Recipes:     services.NewRecipeService(recipeRepo, attrRepo, objects, recipeOpts...),
	}
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "local" {
		deps.Media = objects
	}

	router := NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		storage:    objects,
		mq:         broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logger := logging.Get()
	logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker, storage and
// database.
func (s *Server) Shutdown(ctx context.Context) error {
	errs := []error{s.httpServer.Shutdown(ctx)}
	if s.mq != nil {
		errs = append(errs, s.mq.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
