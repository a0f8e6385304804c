package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jobdesk/apiserver/config"
	"github.com/jobdesk/apiserver/internal/db"
	"github.com/jobdesk/apiserver/internal/handlers"
	"github.com/jobdesk/apiserver/internal/mailer"
	"github.com/jobdesk/apiserver/internal/mq"
	"github.com/jobdesk/apiserver/internal/services"
	"github.com/jobdesk/apiserver/internal/storage"
	"github.com/jobdesk/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
}

// New constructs a Server: database, upload store, broker, mailer, and
// the routed handler tree.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	uploads, err := newUploadStore(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := newBroker(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	sender := mailer.New(cfg.SMTP)
	notifier := mailer.NewNotifier(queue, sender)
	if queue != nil {
		worker := mailer.NewWorker(queue, sender)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("otp mail worker stopped", "error", err)
			}
		}()
	}

	userRepo := store.NewUserRepository(dbConn)
	companyRepo := store.NewCompanyRepository(dbConn)
	adminRepo := store.NewAdminRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	jobRepo := store.NewJobRepository(dbConn)
	applicationRepo := store.NewApplicationRepository(dbConn)

	userService := services.NewPrincipalService(userRepo, notifier)
	companyService := services.NewPrincipalService(companyRepo, notifier)
	adminService := services.NewPrincipalService(adminRepo, notifier)
	categoryService := services.NewCategoryService(categoryRepo)
	jobService := services.NewJobService(jobRepo)
	applicationService := services.NewApplicationService(applicationRepo, jobRepo)

	dev := !cfg.IsProduction()
	userAuth := handlers.NewAuthHandler(userService, userRepo, uploads, handlers.UserPolicy, jwtSecret, dev)
	companyAuth := handlers.NewAuthHandler(companyService, nil, uploads, handlers.CompanyPolicy, jwtSecret, dev)
	adminAuth := handlers.NewAuthHandler(adminService, nil, uploads, handlers.AdminPolicy, jwtSecret, dev)
	categoryHandler := handlers.NewCategoryHandler(categoryService, dev)
	jobHandler := handlers.NewJobHandler(jobService, dev)
	applicationHandler := handlers.NewApplicationHandler(applicationService, dev)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			userAuth.Routes(r)
			r.Group(func(r chi.Router) {
				r.Use(userAuth.RequireAuth)
				applicationHandler.UserRoutes(r)
			})
		})
		r.Route("/company", func(r chi.Router) {
			companyAuth.Routes(r)
			r.Group(func(r chi.Router) {
				r.Use(companyAuth.RequireAuth)
				jobHandler.CompanyRoutes(r)
				applicationHandler.CompanyRoutes(r)
			})
		})
		r.Route("/admin", func(r chi.Router) {
			adminAuth.Routes(r)
			r.Group(func(r chi.Router) {
				r.Use(adminAuth.RequireAuth)
				categoryHandler.AdminRoutes(r)
			})
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.ListPublic)
			r.Get("/categories", categoryHandler.ListVisible)
		})
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
		queue:      queue,
	}, nil
}

func newUploadStore(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown upload storage backend %q", cfg.Storage)
	}

	s := storage.NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// newBroker returns nil when no broker is configured; OTP mail then goes
// out directly on the request path.
func newBroker(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.Broker {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
