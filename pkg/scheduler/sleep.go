package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/render"
)

const screensaverBrightness = 1

// checkSleep enters or leaves the sleep window. It returns true while the
// board is asleep, in which case the frame does nothing but the screensaver.
func (s *Scheduler) checkSleep(ctx context.Context) bool {
	now := s.clock.Now()
	asleep := s.forcedSleep || s.settings.Sleep.Asleep(now.In(s.settings.location()).Hour())

	switch {
	case asleep && !s.sleeping:
		log.Info().Bool("forced", s.forcedSleep).Msg("Board going to sleep")
		s.sleeping = true
		s.nextScreensaver = time.Time{}
		s.publish(ctx)
	case !asleep && s.sleeping:
		log.Info().Msg("Board waking up")
		s.sleeping = false
		s.wake()
		s.publish(ctx)
		return false
	}

	if !s.sleeping {
		return false
	}

	if !now.Before(s.nextScreensaver) {
		s.drawScreensaver(now)
		s.nextScreensaver = now.Add(screensaverInterval)
	}

	return true
}

// wake forces a full redraw from fresh data, or restores the frozen screen
// when fetching has stopped.
func (s *Scheduler) wake() {
	s.firstDraw = true
	s.nextRefresh = time.Time{}
	s.resetAnimations()

	s.screen.ClearAll()
	s.screen.SetBrightness(s.settings.Brightness)
	s.fullRefresh = true

	if s.fatal {
		s.drawFatal(s.fatalTitle, s.fatalDetail)
	}
}

// drawScreensaver moves a dim clock around the panel.
func (s *Scheduler) drawScreensaver(now time.Time) {
	text := now.In(s.settings.location()).Format("15:04")
	width := s.screen.TextWidth(text)

	s.screen.ClearAll()
	s.screen.SetBrightness(screensaverBrightness)
	s.screen.DrawText(rand.Intn(render.Width-width), rand.Intn(render.Height-metroStep), text)
	s.fullRefresh = true
}
