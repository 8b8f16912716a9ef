package api

import (
	"time"

	"github.com/CristiGvl/picoSD/internal/card"
	"github.com/CristiGvl/picoSD/internal/platform"
	"github.com/CristiGvl/picoSD/internal/rpc"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server represents the API server
type Server struct {
	app      *fiber.App
	registry *rpc.Registry
	sd       *card.Card
	timeout  time.Duration
}

// NewServer creates a new API server serving the SD RPC methods for sd.
// sd may be nil, in which case every SD method reports that no card is
// present.
func NewServer(sd *card.Card, timeout time.Duration) (*Server, error) {
	// Validate platform support
	if err := platform.ValidateSupport(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "picoSD",
		AppName:               "picoSD v1.0",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "*",
		MaxAge:       86400, // 24 hours
	}))

	server := &Server{
		app:      app,
		registry: rpc.NewRegistry(),
		sd:       sd,
		timeout:  timeout,
	}

	server.registerSDHandlers()
	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// RPC endpoints
	s.app.Post("/rpc", s.rpcFrame)
	s.app.Get("/rpc/:method", s.rpcCall)
	s.app.Post("/rpc/:method", s.rpcCall)

	// Health check
	api := s.app.Group("/api")
	api.Get("/health", s.healthCheck)
}

// Registry exposes the RPC registry so other services can add methods
func (s *Server) Registry() *rpc.Registry {
	return s.registry
}

// Start starts the API server
func (s *Server) Start(address string) error {
	return s.app.Listen(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Health check endpoint
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"platform":  platform.GetOS(),
		"sd":        s.sd.Ready() == nil,
		"interface": s.sd.Interface(),
		"timestamp": time.Now().Unix(),
	})
}
