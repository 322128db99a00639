package config

import (
	"errors"
	"fmt"

	"PanoGuard/database"
	detectionHandler "PanoGuard/internal/api/detection/handler"
	detectionRepository "PanoGuard/internal/api/detection/repository"
	detectionService "PanoGuard/internal/api/detection/service"
	feedbackHandler "PanoGuard/internal/api/feedback/handler"
	feedbackRepository "PanoGuard/internal/api/feedback/repository"
	feedbackService "PanoGuard/internal/api/feedback/service"
	profileHandler "PanoGuard/internal/api/profile/handler"
	profileRepository "PanoGuard/internal/api/profile/repository"
	profileService "PanoGuard/internal/api/profile/service"
	"PanoGuard/internal/middleware"
	"PanoGuard/pkg/bcrypt"
	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/redis"
	"PanoGuard/pkg/s3"
	"PanoGuard/pkg/storage"
	"PanoGuard/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	app         AppConfig
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	bcryptUtils bcrypt.IBcrypt
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	imageStore  *storage.LocalStore
	codec       *dicom.LazyCodec
	decoder     *dicom.Decoder
	session     *inference.Manager
	registry    ModelRegistry
	models      *detectionService.ModelHost
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
	if server.models == nil {
		return nil, fmt.Errorf("inference must be configured")
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

func WithAppConfig(cfg AppConfig) ServerOption {
	return func(s *Server) error {
		s.app = cfg
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
		db, err := database.NewFromEnv()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return err
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.app.RateLimitRPS, s.app.RateLimitBurst)
		return nil
	}
}

// WithS3Client enables radiograph archiving. An unset bucket leaves it off.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if client == nil && s.log != nil {
			s.log.Info("AWS_BUCKET_NAME not set, radiograph archiving disabled")
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.NewWithLimit(s.app.MaxUploadSize)
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func WithImageStore() ServerOption {
	return func(s *Server) error {
		store, err := storage.NewLocalStore(s.app.StorageDir)
		if err != nil {
			return fmt.Errorf("failed to create image store: %w", err)
		}
		s.imageStore = store
		return nil
	}
}

// WithDicomDecoder wires the lazily initialised pixel codec. Nothing is
// touched on disk until the first DICOM upload.
func WithDicomDecoder() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the DICOM decoder")
		}
		s.codec = dicom.NewLazyCodec(dicom.NewFileCodec(s.app.DicomWorkDir), s.log)
		s.decoder = dicom.NewDecoder(s.codec, s.log)
		return nil
	}
}

// WithInference loads the model registry and activates the configured
// model. In real mode a model that fails to load does not stop the server;
// classification requests report the model as unavailable instead.
func WithInference(ctx context.Context) ServerOption {
	return func(s *Server) error {
		if s.decoder == nil || s.imageStore == nil {
			return fmt.Errorf("image store and DICOM decoder must be initialized before inference")
		}

		registry, err := LoadModelRegistry(s.app.ModelRegistry)
		if err != nil {
			return err
		}
		name := s.app.ModelName
		if name == "" {
			name = registry.Default
		}
		if _, err := registry.Get(name); err != nil {
			return err
		}

		s.registry = registry
		s.session = inference.NewManager(inference.NewONNXRuntime(s.app.OnnxRuntimeLib), s.log)
		s.models = detectionService.NewModelHost(
			s.log,
			s.session,
			s.decoder,
			s.codec,
			s.imageStore,
			s.app.InferenceMode,
			registry.ModelInfos(),
		)

		if err := s.models.Activate(ctx, name); err != nil {
			s.log.WithFields(logrus.Fields{
				"model": name,
				"error": err.Error(),
			}).Error("Starting without a usable model")
		}
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Profile Domain
	profileRepo := profileRepository.New(s.db, s.log)
	profileServices := profileService.New(s.log, profileRepo, s.bcryptUtils, s.utils)
	profileHandlers := profileHandler.New(s.log, s.validator, s.middleware, profileServices)

	// Detection
	detectionRepo := detectionRepository.New(s.db, s.log)
	detectionServices := detectionService.New(s.log, detectionRepo, s.models, s.imageStore, s.redisServer, redis.TTLFromEnv(), s.s3Client, s.utils)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils)

	// Feedback
	feedbackRepo := feedbackRepository.New(s.db, s.log)
	feedbackServices := feedbackService.New(s.log, feedbackRepo, s.utils)
	feedbackHandlers := feedbackHandler.New(s.log, s.validator, s.middleware, feedbackServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, profileHandlers, detectionHandlers, feedbackHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(fiberRecover.New(fiberRecover.Config{EnableStackTrace: true}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := s.app.Port
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops the listener and releases the model, codec, cache and
// database in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if s.models != nil {
		if err := s.models.Close(); err != nil {
			errs = append(errs, fmt.Errorf("model: %w", err))
		}
	}
	if s.codec != nil {
		if err := s.codec.Close(); err != nil {
			errs = append(errs, fmt.Errorf("dicom codec: %w", err))
		}
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		status := s.models.Status()
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
			"model":   status.Active,
			"mode":    status.Mode,
			"state":   status.State,
			"codec":   status.Codec,
		})
	})
}
