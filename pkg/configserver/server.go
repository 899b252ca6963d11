// Package configserver is the HTTP configuration interface of the board.
package configserver

import (
	"context"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/scheduler"
	"github.com/travigo/departures-board/pkg/status"
	"golang.org/x/time/rate"
)

// Controller accepts events for the running scheduler.
type Controller interface {
	Post(event scheduler.Event) bool
}

type StatusReader interface {
	Load(ctx context.Context) (status.Snapshot, error)
}

type Options struct {
	Store      *config.Store
	Status     StatusReader
	Controller Controller
	Version    string
}

type Server struct {
	app        *fiber.App
	store      *config.Store
	status     StatusReader
	controller Controller
	version    string
	limiter    *rate.Limiter
}

func New(options Options) *Server {
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	serverConfig := options.Store.Get().Server

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			JSONEncoder:           json.Marshal,
			JSONDecoder:           json.Unmarshal,
		}),
		store:      options.Store,
		status:     options.Status,
		controller: options.Controller,
		version:    options.Version,
		limiter:    rate.NewLimiter(rate.Limit(serverConfig.ControlRate), serverConfig.ControlBurst),
	}

	s.app.Use(NewLogger())

	s.app.Get("/info", s.getInfo)
	s.app.Get("/board", s.getBoard)
	s.app.Get("/firmware", s.getFirmware)

	s.app.Post("/control", s.rateLimit, s.postControl)
	s.app.Post("/reconfigure", s.rateLimit, s.postReconfigure)
	s.app.Post("/sleep", s.rateLimit, s.postSleep)
	s.app.Post("/brightness", s.rateLimit, s.postBrightness)
	s.app.Post("/update", s.rateLimit, s.postUpdate)

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(address string) error {
	log.Info().Str("listen", address).Msg("Starting config server")

	return s.app.Listen(address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
