package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/feeds/release"
	"github.com/travigo/departures-board/pkg/render"
	"github.com/travigo/departures-board/pkg/updater"
)

const (
	FirmwareCountdown = 30 * time.Second

	firmwareCheckBase   = 55 * time.Minute
	firmwareCheckJitter = 10 * time.Minute
	countdownStep       = 100 * time.Millisecond
	firmwareResultHold  = 5 * time.Second
)

// checkFirmware runs the release check once a day, or straight away when it
// was requested.
func (s *Scheduler) checkFirmware(ctx context.Context) {
	if s.releases == nil {
		s.firmwareRequested = false
		return
	}
	// Only a user request fetches anything while the board is frozen
	if s.fatal && !s.firmwareRequested {
		return
	}

	now := s.clock.Now()
	day := now.In(s.settings.location()).YearDay()

	if !s.firmwareRequested {
		if !s.settings.DailyFirmwareCheck || now.Before(s.nextFirmwareCheck) {
			return
		}
		s.nextFirmwareCheck = now.Add(firmwareCheckBase + time.Duration(rand.Int63n(int64(firmwareCheckJitter))))
		if day == s.firmwareDay {
			return
		}
	}
	s.firmwareRequested = false

	s.offerFirmware(ctx, day)
}

func (s *Scheduler) offerFirmware(ctx context.Context, day int) {
	outcome := s.releases.Update(ctx, s.progress(ctx))

	s.firmware.Running = s.settings.Version
	s.firmware.CheckedAt = s.clock.Now()

	if !outcome.Result.Succeeded() {
		log.Warn().Str("result", outcome.Result.String()).Str("message", outcome.Message).Msg("Release check failed")
		s.firmware.Error = outcome.String()
		s.publish(ctx)
		return
	}
	s.firmwareDay = day

	descriptor := s.releases.Descriptor()
	s.firmware.Latest = descriptor.Tag
	s.firmware.Description = descriptor.Description

	asset, available, err := updater.Candidate(descriptor, s.settings.Version)
	s.firmware.Available = available
	s.firmware.Error = ""
	if err != nil {
		log.Warn().Err(err).Str("tag", descriptor.Tag).Msg("Release cannot be installed")
		s.firmware.Error = err.Error()
	}
	s.publish(ctx)

	if !available || s.flasher == nil {
		return
	}

	log.Info().Str("running", s.settings.Version).Str("latest", descriptor.Tag).Msg("Firmware update available")

	if !s.countdown(ctx, descriptor) {
		return
	}

	s.install(ctx, descriptor, asset)
}

// countdown shows the pending update while still answering events.
func (s *Scheduler) countdown(ctx context.Context, descriptor release.Descriptor) bool {
	for remaining := FirmwareCountdown; remaining > 0; remaining -= time.Second {
		s.screen.ClearAll()
		s.screen.CentreText(0, "Firmware update available")
		s.screen.CentreText(15, "Version "+descriptor.Tag)
		s.screen.CentreText(28, fitText(s.screen, descriptor.Description, render.Width))
		s.screen.CentreText(41, fmt.Sprintf("Installing in %d seconds", int(remaining/time.Second)))
		s.screen.Commit(render.FullScreen)

		deadline := s.clock.Now().Add(time.Second)
		for s.clock.Now().Before(deadline) {
			if ctx.Err() != nil {
				return false
			}
			s.serviceEvents(ctx)
			s.clock.Sleep(countdownStep)
		}
	}

	return true
}

func (s *Scheduler) install(ctx context.Context, descriptor release.Descriptor, asset release.Asset) {
	progress := func(percent int) {
		area := render.Area{X: 0, Y: 41, W: render.Width, H: 13}
		s.screen.Blank(area)
		s.screen.CentreText(41, fmt.Sprintf("Installing %d%%", percent))
		s.screen.Commit(area)
	}

	s.screen.ClearAll()
	s.screen.CentreText(15, "Updating firmware")
	s.screen.CentreText(28, "Version "+descriptor.Tag)
	s.screen.Commit(render.FullScreen)

	result := "Firmware update complete"
	if err := s.flasher.Flash(ctx, asset, s.releases.Token(), progress); err != nil {
		log.Error().Err(err).Str("tag", descriptor.Tag).Msg("Firmware update failed")
		s.firmware.Error = err.Error()
		result = "Firmware update failed"
	} else {
		log.Info().Str("tag", descriptor.Tag).Msg("Firmware update installed")
		s.firmware.Available = false
	}

	s.screen.ClearAll()
	s.screen.CentreText(28, result)
	s.screen.Commit(render.FullScreen)
	s.clock.Sleep(firmwareResultHold)

	if s.fatal {
		s.drawFatal(s.fatalTitle, s.fatalDetail)
		s.publish(ctx)
		return
	}

	s.enterMode(ctx)
}
