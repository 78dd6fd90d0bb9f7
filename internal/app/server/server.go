package server

import (
	"context"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/service"
	inthttp "github.com/Ayesha-Taranum/SourceVoid/internal/http/handler"
	"github.com/Ayesha-Taranum/SourceVoid/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger       *zap.Logger
	Postgres     *pgxpool.Pool
	Redis        *redis.Client
	NATS         *nats.Conn
	JetStream    nats.JetStreamContext
	Rooms        service.RoomService
	Views        *service.ViewPublisher
	CountMetrics bool
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	roomHandler := inthttp.NewRoomHandler(inthttp.RoomDeps{
		Logger:       s.deps.Logger,
		Rooms:        s.deps.Rooms,
		Views:        s.deps.Views,
		Postgres:     s.deps.Postgres,
		CountMetrics: s.deps.CountMetrics,
	})
	roomHandler.Register(s.app)
}
