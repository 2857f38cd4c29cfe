package values

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port     int `default:"5000"`
	MaxIndex int `default:"40"`
}

func ParseServerConfig() ServerConfig {
	cfg := ServerConfig{}
	envconfig.MustProcess("VALUES_SERVER", &cfg)

	return cfg
}

type Server struct {
	router *fiber.App
	port   int
	app    App
	log    *zap.Logger
}

func NewServer(cfg ServerConfig, app App, logger *zap.Logger) Server {
	router := fiber.New(fiber.Config{DisableStartupMessage: true})
	server := Server{
		router: router,
		port:   cfg.Port,
		app:    app,
		log:    logger.Named("http"),
	}

	router.Use(recover.New())
	router.Use(cors.New())
	router.Use(requestLogger(server.log))

	router.Hooks().OnListen(func(data fiber.ListenData) error {
		server.log.Info("listening", zap.String("host", data.Host), zap.String("port", data.Port))
		return nil
	})

	router.Get("/", server.getRoot)
	router.Get("/values/all", server.getAllValues)
	router.Get("/values/current", server.getCurrentValues)
	router.Post("/values", server.postValues)

	return server
}

func (s *Server) Start() error {
	return s.router.Listen(":" + strconv.Itoa(s.port))
}

func (s *Server) Stop(ctx context.Context) error {
	return s.router.ShutdownWithContext(ctx)
}

func (s *Server) Test(req *http.Request, msTimeout ...int) (*http.Response, error) {
	return s.router.Test(req, msTimeout...)
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)

		return err
	}
}

func (s *Server) getRoot(c *fiber.Ctx) error {
	return c.SendString("Hi")
}

func (s *Server) getAllValues(c *fiber.Ctx) error {
	values, err := s.app.AllValues(c.UserContext())
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(values)
}

func (s *Server) getCurrentValues(c *fiber.Ctx) error {
	current, err := s.app.CurrentValues(c.UserContext())
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(current)
}

type indexRequest struct {
	Index json.RawMessage `json:"index"`
}

func (s *Server) postValues(c *fiber.Ctx) error {
	req := indexRequest{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	index, err := ParseIndex(req.Index)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Index must be an integer")
	}

	err = s.app.SubmitIndex(c.UserContext(), index)
	if err != nil {
		if errors.Is(err, ErrTooHigh) {
			return c.Status(fiber.StatusUnprocessableEntity).SendString("Index too high")
		}

		return s.internalError(c, err)
	}

	return c.JSON(fiber.Map{"working": true})
}

func (s *Server) internalError(c *fiber.Ctx, err error) error {
	s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternal.Error()})
}
