// Package server assembles the HTTP surface of the engine.
package server

import (
	"context"
	"net/http"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/makeasinger/musicengine/internal/handler"
	"github.com/makeasinger/musicengine/internal/middleware"
	ws "github.com/makeasinger/musicengine/internal/websocket"
	"github.com/makeasinger/musicengine/pkg/response"
)

// Deps are the components the routes are bound to
type Deps struct {
	Jobs    *handler.JobHandler
	Auth    *middleware.AuthMiddleware
	Hub     *ws.Hub
	Metrics http.Handler                // optional
	Ping    func(context.Context) error // optional broker health check
	// AccessLog enables the fiber request logger
	AccessLog bool
}

// New builds the fiber app with every route mounted
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		redisStatus := "healthy"
		if d.Ping != nil {
			if err := d.Ping(c.Context()); err != nil {
				redisStatus = "unhealthy"
			}
		}
		return c.JSON(fiber.Map{"api": "healthy", "redis": redisStatus})
	})

	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	api := app.Group("/api", d.Auth.Authenticate())
	api.Post("/generate", d.Jobs.Generate)
	api.Get("/status/:jobId", d.Jobs.Status)
	api.Get("/download/:jobId/:name", d.Jobs.Download)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, err := d.Auth.Parse(c.Query("token")); err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}
		return c.Next()
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		d.Hub.HandleConnection(c, c.Params("jobId"))
	}))

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
