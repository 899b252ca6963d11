package scheduler

import (
	"fmt"
	"time"
	"unicode"

	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/render"
)

// Tube and bus boards share a layout: two fixed services, then a line that
// rotates through the remaining services and the messages.
const (
	metroHeader = 0
	metroLine1  = 15
	metroLine2  = 28
	metroLine3  = 41
	metroClock  = 56
	metroStep   = 11

	tubeNoServices = "There are no scheduled arrivals at this station."
	busNoServices  = "There are no scheduled services at this stop."

	metroServiceHold = 3500 * time.Millisecond
	metroMessageHold = 3 * time.Second
	metroStaticHold  = 30 * time.Second
	busColumnGap     = 5
)

var (
	metroPrimaryArea  = render.Area{X: 0, Y: metroLine1, W: render.Width, H: metroLine3 - metroLine1}
	metroLine1Area    = render.Area{X: 0, Y: metroLine1, W: render.Width, H: metroLine2 - metroLine1}
	metroLine2Area    = render.Area{X: 0, Y: metroLine2, W: render.Width, H: metroLine3 - metroLine2}
	metroRotationArea = render.Area{X: 0, Y: metroLine3, W: render.Width, H: metroClock - metroLine3}
)

func (s *Scheduler) drawMetroBoard(changed bool) {
	if s.firstDraw {
		s.screen.ClearAll()
		s.screen.SetBrightness(s.settings.Brightness)
		s.firstDraw = false
		s.shownClock = ""
	} else {
		s.screen.Blank(render.Area{X: 0, Y: 0, W: render.Width, H: metroLine1})
	}

	s.screen.CentreText(metroHeader, fitText(s.screen, s.board.Location, render.Width))

	if s.mode == Bus {
		s.busLineWidth = 0
		for _, departure := range s.board.Departures.Items {
			s.busLineWidth = max(s.busLineWidth, s.screen.TextWidth(departure.Platform))
		}
		s.busLineWidth += busColumnGap
	}

	s.composeMessages()

	if changed {
		s.primary = Animation{Phase: Entering, Offset: metroStep}
		s.line3 = Animation{Index: -1, Previous: -1}
		s.screen.Blank(metroRotationArea)
	} else {
		s.drawMetroPrimary(0)
	}

	s.fullRefresh = true
}

func (s *Scheduler) metroMessages() []string {
	var messages []string

	if s.mode == Bus && s.weatherLine != "" {
		messages = append(messages, s.weatherLine)
	}
	messages = append(messages, s.board.Messages.Items...)
	if s.mode != Bus && s.headline != "" {
		messages = append(messages, s.headline)
	}

	return messages
}

func (s *Scheduler) drawMetroPrimary(offset int) {
	s.screen.Blank(metroPrimaryArea)

	s.screen.SetClip(metroLine1Area)
	if s.board.Empty() {
		noServices := tubeNoServices
		if s.mode == Bus {
			noServices = busNoServices
		}
		s.screen.CentreText(metroLine1+offset, noServices)
	} else {
		s.drawMetroService(0, metroLine1+offset)
	}

	s.screen.SetClip(metroLine2Area)
	if s.board.Departures.Len() > 1 {
		s.drawMetroService(1, metroLine2+offset)
	}
	s.screen.ClearClip()
}

func (s *Scheduler) drawMetroService(index int, y int) {
	departure, ok := s.board.Departure(index)
	if !ok {
		return
	}

	if s.mode == Bus {
		s.drawBusService(departure, y)
	} else {
		s.drawTubeService(index, departure, y)
	}
}

func (s *Scheduler) drawTubeService(index int, departure board.Departure, y int) {
	due := ""
	if index > 0 || departure.TimeToStation > 30 {
		due = arrivalText(departure.TimeToStation)
	}
	dueWidth := s.screen.TextWidth(due)

	label := fmt.Sprintf("%d %s", index+1, departure.Destination)
	s.screen.DrawText(0, y, fitText(s.screen, label, render.Width-dueWidth-render.CharWidth))
	if due != "" {
		s.screen.DrawText(render.Width-dueWidth, y, due)
	}
}

// arrivalText rounds to the nearest minute, with anything inside a minute shown as due.
func arrivalText(seconds int) string {
	if seconds <= 60 {
		return "Due"
	}

	minutes := (seconds + 30) / 60
	if minutes == 1 {
		return "1 min"
	}

	return fmt.Sprintf("%d mins", minutes)
}

func (s *Scheduler) drawBusService(departure board.Departure, y int) {
	due := departure.ScheduledTime
	if departure.ExpectedTime != "" && unicode.IsDigit(rune(departure.ExpectedTime[0])) {
		due = "Exp " + departure.ExpectedTime
	}
	dueWidth := s.screen.TextWidth(due)

	s.screen.DrawText(0, y, departure.Platform)
	s.screen.DrawText(s.busLineWidth, y, fitText(s.screen, departure.Destination, render.Width-dueWidth-s.busLineWidth-render.CharWidth))
	s.screen.DrawText(render.Width-dueWidth, y, due)
}

// animateMetroPrimary scrolls the first two services up into place after the board changed.
func (s *Scheduler) animateMetroPrimary() {
	a := &s.primary
	if a.Phase != Entering {
		return
	}

	s.drawMetroPrimary(a.Offset)
	s.fullRefresh = true

	if a.Offset > 0 {
		a.Offset--
		return
	}
	a.Phase = Idle
}

func (s *Scheduler) rotationServices() int {
	return max(s.board.Departures.Len()-2, 0)
}

func (s *Scheduler) rotationCount() int {
	return s.rotationServices() + len(s.messages)
}

// rotationItem resolves a position in the line-3 cycle to either a service
// index or a message.
func (s *Scheduler) rotationItem(position int) (service int, message string) {
	services := s.rotationServices()
	if position < services {
		return position + 2, ""
	}

	return -1, s.message(position - services)
}

func (s *Scheduler) drawRotationItem(position int, y int, width int) {
	if position < 0 {
		return
	}

	service, message := s.rotationItem(position)
	if service >= 0 {
		s.drawMetroService(service, y)
		return
	}

	if width < render.Width {
		s.screen.CentreText(y, message)
	} else {
		s.screen.DrawText(0, y, message)
	}
}

func (s *Scheduler) animateMetroRotation(now time.Time) {
	if s.primary.Moving() {
		return
	}

	a := &s.line3
	switch a.Phase {
	case Entering:
		s.screen.Blank(metroRotationArea)
		s.screen.SetClip(metroRotationArea)

		if a.PreviousWidth < render.Width {
			s.drawRotationItem(a.Previous, metroLine3+a.Offset-metroStep-2, a.PreviousWidth)
		}
		s.drawRotationItem(a.Index, metroLine3+a.Offset, a.Width)

		s.screen.ClearClip()
		s.markDirty(metroRotationArea)

		if a.Offset > 0 {
			a.Offset--
			return
		}

		if service, _ := s.rotationItem(a.Index); service >= 0 {
			a.Phase = Holding
			a.Due = now.Add(metroServiceHold)
		} else {
			a.Phase = Scrolling
			a.Scroll = 0
			a.Due = now.Add(scrollPause)
		}
	case Scrolling:
		if !a.due(now) {
			return
		}
		if a.Width < render.Width {
			a.Phase = Holding
			a.Due = now.Add(metroMessageHold)
			return
		}

		_, message := s.rotationItem(a.Index)
		s.screen.Blank(metroRotationArea)
		s.screen.DrawText(a.Scroll, metroLine3, message)
		s.markDirty(metroRotationArea)

		a.Scroll--
		if a.Scroll < -a.Width {
			a.Phase = Holding
			a.Due = now.Add(scrollPause)
		}
	default:
		if !a.due(now) {
			return
		}

		count := s.rotationCount()
		if count == 0 {
			return
		}
		if count == 1 && a.Index == 0 {
			a.Due = now.Add(metroStaticHold)
			return
		}
		a.Phase = Exiting
	case Exiting:
		count := s.rotationCount()
		if count == 0 {
			a.Phase = Idle
			return
		}

		a.Previous = a.Index
		a.PreviousWidth = a.Width
		a.Index = (a.Index + 1) % count

		a.Width = 0
		if service, message := s.rotationItem(a.Index); service < 0 {
			a.Width = s.screen.TextWidth(message)
		}

		a.Offset = metroStep
		a.Phase = Entering
	}
}
