package configserver

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger logs each request. Reads are debug level since monitoring tools
// poll /info, control requests are info, and failures warn or error by status.
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			code = fiberErr.Code
		}

		var event *zerolog.Event
		switch {
		case code >= fiber.StatusInternalServerError:
			event = log.Error()
		case code >= fiber.StatusBadRequest:
			event = log.Warn()
		case c.Method() == fiber.MethodGet:
			event = log.Debug()
		default:
			event = log.Info()
		}

		msg := "Config request"
		if err != nil {
			event = event.Err(err)
		}

		event.
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(started)).
			Msg(msg)

		return err
	}
}
