package config

import (
	"context"
	"fmt"
	"time"

	"classlens/database/postgres"
	engagementHandler "classlens/internal/api/engagement/handler"
	engagementRepository "classlens/internal/api/engagement/repository"
	engagementService "classlens/internal/api/engagement/service"
	"classlens/internal/middleware"
	"classlens/pkg/attention"
	"classlens/pkg/broadcast"
	"classlens/pkg/env"
	"classlens/pkg/headpose"
	"classlens/pkg/landmark"
	"classlens/pkg/redis"
	"classlens/pkg/scoring"
	"classlens/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	scorer      *scoring.Scorer
	provider    landmark.Provider
	estimator   headpose.Estimator
	store       attention.Store
	publisher   broadcast.Publisher
	closers     []func()
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if server.provider == nil {
		return nil, fmt.Errorf("landmark provider is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, middleware.DefaultConfig())
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.store == nil {
		server.store = attention.NewMemoryStore()
	}
	if server.publisher == nil {
		server.publisher = broadcast.Noop{}
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		s.closers = append(s.closers, func() { db.Close() })
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		s.closers = append(s.closers, func() { redisServer.Close() })
		return nil
	}
}

func WithMiddleware(cfg middleware.Config) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

// WithScoringConfig loads tuning from a YAML file, or uses the defaults when
// path is empty.
func WithScoringConfig(path string) ServerOption {
	return func(s *Server) error {
		cfg := scoring.DefaultConfig()
		if path != "" {
			loaded, err := scoring.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("failed to load scoring config: %w", err)
			}
			cfg = loaded
		}

		scorer, err := scoring.NewScorer(cfg)
		if err != nil {
			return err
		}
		s.scorer = scorer
		return nil
	}
}

func WithLandmarkProvider(provider landmark.Provider) ServerOption {
	return func(s *Server) error {
		s.provider = provider
		if c, ok := provider.(interface{ Close() }); ok {
			s.closers = append(s.closers, c.Close)
		}
		return nil
	}
}

func WithHeadPoseEstimator(estimator headpose.Estimator) ServerOption {
	return func(s *Server) error {
		s.estimator = estimator
		return nil
	}
}

// WithAttentionStore picks where stream state lives: "memory" or "redis".
// The redis store needs WithRedisServer first.
func WithAttentionStore(kind string, ttl time.Duration) ServerOption {
	return func(s *Server) error {
		switch kind {
		case "", "memory":
			s.store = attention.NewMemoryStore()
		case "redis":
			if s.redisServer == nil {
				return fmt.Errorf("redis attention store requires a redis server")
			}
			s.store = attention.NewRedisStore(s.redisServer, ttl)
		default:
			return fmt.Errorf("unknown attention store %q", kind)
		}
		return nil
	}
}

func WithPublisher(publisher broadcast.Publisher) ServerOption {
	return func(s *Server) error {
		s.publisher = publisher
		s.closers = append(s.closers, publisher.Close)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	engagementRepo := engagementRepository.New(s.db, s.log)
	manager := attention.NewManager(s.store, scoring.NewAttentionState(s.scorer.Config()))
	engagementServices := engagementService.NewEngagementService(s.log, engagementRepo, s.scorer, s.provider, s.estimator, manager, s.publisher, s.utils)
	engagementHandlers := engagementHandler.New(s.log, s.validator, s.middleware, engagementServices, s.utils)

	s.setupHealthCheck(engagementHandlers)
	s.handlers = append(s.handlers, engagementHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := env.GetEnv("APP_PORT", "3000")
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	return err
}

func (s *Server) setupHealthCheck(h *engagementHandler.EngagementHandler) {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
	s.engine.Get("/health", h.Health)
}
