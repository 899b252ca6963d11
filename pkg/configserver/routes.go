package configserver

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/scheduler"
	"github.com/travigo/departures-board/pkg/status"
)

func errorResponse(c *fiber.Ctx, code int, message string) error {
	c.Status(code)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if !s.limiter.Allow() {
		return errorResponse(c, fiber.StatusTooManyRequests, "Too many control requests")
	}

	return c.Next()
}

func (s *Server) snapshot(c *fiber.Ctx) (status.Snapshot, bool) {
	snapshot, err := s.status.Load(c.Context())
	if err != nil {
		return snapshot, false
	}

	return snapshot, true
}

func (s *Server) getInfo(c *fiber.Ctx) error {
	snapshot, ok := s.snapshot(c)
	if !ok {
		return errorResponse(c, fiber.StatusServiceUnavailable, "Board has not published any status yet")
	}

	info, err := renderInfo(snapshot, s.version, c.QueryBool("detail"))
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(info)
}

func (s *Server) getBoard(c *fiber.Ctx) error {
	snapshot, ok := s.snapshot(c)
	if !ok {
		return errorResponse(c, fiber.StatusServiceUnavailable, "Board has not published any status yet")
	}

	view, err := renderBoard(snapshot.Board, c.QueryBool("detail"))
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(view)
}

func (s *Server) getFirmware(c *fiber.Ctx) error {
	snapshot, ok := s.snapshot(c)
	if !ok {
		return c.JSON(status.Firmware{Running: s.version})
	}

	return c.JSON(snapshot.Firmware)
}

func (s *Server) post(c *fiber.Ctx, event scheduler.Event) error {
	if !s.controller.Post(event) {
		return errorResponse(c, fiber.StatusServiceUnavailable, "Board is busy, try again shortly")
	}

	c.Status(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"event": event.Kind.String(),
	})
}

type controlRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) postControl(c *fiber.Ctx) error {
	var request controlRequest
	if err := c.BodyParser(&request); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	mode, err := scheduler.ParseMode(request.Mode)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := s.store.Merge(config.Config{Mode: mode.String()}); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	return s.post(c, scheduler.SwitchMode(mode))
}

// postReconfigure merges the posted settings into the stored ones. With
// ?replace=true the body replaces them outright.
func (s *Server) postReconfigure(c *fiber.Ctx) error {
	var patch config.Config
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&patch); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	var updated config.Config
	var err error
	if c.QueryBool("replace") {
		err = s.store.Replace(patch)
		updated = patch
	} else {
		updated, err = s.store.Merge(patch)
	}
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	settings, err := updated.Settings(s.version)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	return s.post(c, scheduler.Reconfigure(&settings))
}

type sleepRequest struct {
	On bool `json:"on"`
}

func (s *Server) postSleep(c *fiber.Ctx) error {
	var request sleepRequest
	if err := c.BodyParser(&request); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	return s.post(c, scheduler.Sleep(request.On))
}

type brightnessRequest struct {
	Level int `json:"level"`
}

func (s *Server) postBrightness(c *fiber.Ctx) error {
	var request brightnessRequest
	if err := c.BodyParser(&request); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if request.Level < 0 || request.Level > 255 {
		return errorResponse(c, fiber.StatusBadRequest, "Brightness must be between 0 and 255")
	}

	return s.post(c, scheduler.Brightness(request.Level))
}

func (s *Server) postUpdate(c *fiber.Ctx) error {
	return s.post(c, scheduler.CheckFirmware())
}
