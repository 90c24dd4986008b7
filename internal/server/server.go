package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gramseva/apiserver/config"
	"github.com/gramseva/apiserver/internal/db"
	"github.com/gramseva/apiserver/internal/handlers"
	"github.com/gramseva/apiserver/internal/mq"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/internal/storage"
	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mongo      *mongo.Database
	broker     *mq.MQ
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults. The message
// broker and object storage backends are optional: with neither configured
// the server still serves every route, minus roster export.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mongoDB, err := db.OpenMongo(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	identityRepo := store.NewIdentityRepository(dbConn)
	profileRepos := make(map[types.Role]*store.ProfileRepository, 3)
	for _, role := range []types.Role{types.RoleAssociate, types.RoleTalukaHead, types.RoleGroundWorker} {
		repo, err := store.NewProfileRepository(dbConn, role)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		profileRepos[role] = repo
	}
	taskRepo := store.NewTaskRepository(mongoDB)

	broker, err := newBroker(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	archive, err := newArchive(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	registrationService := services.NewRegistrationService(
		identityRepo,
		cfg.CollectorSecretKey,
		profileRepos[types.RoleAssociate],
		profileRepos[types.RoleTalukaHead],
		profileRepos[types.RoleGroundWorker],
	)
	authService := services.NewAuthService(identityRepo)
	taskService := services.NewTaskService(taskRepo, eventPublisher(broker), logger)

	var exportService *services.ExportService
	if archive != nil {
		exportService = services.NewExportService(archive, logger)
	}

	dev := cfg.IsDev()
	authMiddleware := handlers.RequireAuth(jwtSecret)

	authHandler := handlers.NewAuthHandler(registrationService, authService, jwtSecret, logger, dev)
	userHandler := handlers.NewUserHandler(identityRepo, authService, logger, dev)
	taskHandler := handlers.NewTaskHandler(taskService, logger, dev)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	// Set before any Route call so subrouters inherit the catch-all.
	router.NotFound(handlers.NotFound)
	router.Get("/health", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, authMiddleware)
	})

	directoryRoutes := map[string]types.Role{
		"/associates":     types.RoleAssociate,
		"/taluka-heads":   types.RoleTalukaHead,
		"/ground-workers": types.RoleGroundWorker,
	}
	for pattern, role := range directoryRoutes {
		directory := services.NewDirectoryService(profileRepos[role])
		handler := handlers.NewDirectoryHandler(directory, registrationService, exportService, logger, dev)
		router.Route(pattern, func(r chi.Router) {
			handlers.DirectoryRouter(r, handler)
		})
	}

	router.Route("/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, taskHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mongo:      mongoDB,
		broker:     broker,
		logger:     logger,
	}, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newBroker builds the configured message broker, or nil when MQ_BACKEND is
// unset. Task events are then skipped entirely.
func newBroker(ctx context.Context, cfg config.Config, logger *zap.Logger) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "":
		logger.Info("message broker disabled, task events will not be published")
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown MQ_BACKEND %q", cfg.MQ.Backend)
	}
}

// eventPublisher converts the optional broker into the publisher dependency.
// A typed nil must not leak into the interface.
func eventPublisher(broker *mq.MQ) services.EventPublisher {
	if broker == nil {
		return nil
	}
	return broker
}

// newArchive builds the configured object storage, or nil when
// STORAGE_BACKEND is unset. Roster export routes are then not registered.
func newArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		logger.Info("object storage disabled, roster export unavailable")
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	archive := storage.NewStorage(backend)
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return archive, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.mongo.Client().Disconnect(ctx)
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}
