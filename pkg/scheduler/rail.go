package scheduler

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/render"
)

const (
	railHeader = 0
	railLine1  = 13
	railLine2  = 28
	railLine3  = 41
	railClock  = 55
	railStep   = 10

	railAttribution  = "Powered by National Rail Enquiries"
	railNoServices   = "There are no scheduled services at this station."
	callingAtPrefix  = "Calling at: "
	railServiceHold  = 5 * time.Second
	railStaticHold   = 30 * time.Second
	railMessageHold  = 6 * time.Second
	railMessageEnter = 1500 * time.Millisecond
	scrollPause      = 500 * time.Millisecond
	viaFirstShown    = 4 * time.Second
	viaShownFor      = 3 * time.Second
	destinationFor   = 4 * time.Second
)

var (
	railPrimaryArea  = render.Area{X: 0, Y: railLine1, W: render.Width, H: railLine2 - railLine1}
	railMessagesArea = render.Area{X: 0, Y: railLine2, W: render.Width, H: railLine3 - railLine2}
	railServicesArea = render.Area{X: 0, Y: railLine3, W: render.Width, H: railClock - railLine3}
)

func (s *Scheduler) drawRailBoard() {
	if s.firstDraw {
		s.screen.ClearAll()
		s.screen.SetBrightness(s.settings.Brightness)
		s.firstDraw = false
		s.shownClock = ""
		s.line3.Index = 0
		if s.settings.NoScrolling {
			s.line3.Index = 1
		}
		s.fullRefresh = true
	} else {
		s.screen.Blank(render.Area{X: 0, Y: 0, W: render.Width, H: railLine2})
	}

	s.screen.CentreText(railHeader, fitText(s.screen, s.board.Location, render.Width))

	s.viaShown = false
	s.nextVia = time.Time{}

	first, ok := s.board.Departure(0)
	if ok {
		s.drawRailPrimary(first, false)
		if first.Via != "" {
			s.nextVia = s.clock.Now().Add(viaFirstShown)
		}
	} else {
		s.screen.Blank(railServicesArea)
		s.screen.CentreText(railLine1, railNoServices)
	}

	s.composeMessages()
	s.line2 = Animation{Index: len(s.messages) - 1, Previous: -1}

	s.screen.Blank(railMessagesArea)
	if s.settings.NoScrolling {
		if second, ok := s.board.Departure(1); ok {
			s.drawRailService(second, railLine2, ordinal(1), false)
		} else if len(s.messages) > 0 {
			s.screen.CentreText(railLine2, fitText(s.screen, s.messages[0], render.Width))
		}
	}

	s.fullRefresh = true
}

func (s *Scheduler) railMessages() []string {
	var messages []string

	if first, ok := s.board.Departure(0); ok {
		if first.Cancelled {
			if s.board.Reason != "" {
				messages = append(messages, s.board.Reason)
			}
		} else {
			if first.Delayed && s.board.Reason != "" {
				messages = append(messages, s.board.Reason)
			}
			if s.board.CallingPoints != "" {
				messages = append(messages, callingAtPrefix+s.board.CallingPoints)
			}
			if origin := originMessage(first, s.board); origin != "" {
				messages = append(messages, origin)
			}
			if first.Length > 0 {
				messages = append(messages, fmt.Sprintf("This train is formed of %d coaches.", first.Length))
			}
		}
	}

	messages = append(messages, s.board.Messages.Items...)
	if s.headline != "" {
		messages = append(messages, s.headline)
	}

	return messages
}

func originMessage(first board.Departure, current board.Board) string {
	operator := first.Operator
	origin := current.Origin

	switch {
	case origin != "" && origin == current.Location:
		if operator == "" {
			return "This service starts here."
		}
		return fmt.Sprintf("This %s service starts here.", operator)
	case operator != "" && origin != "":
		return fmt.Sprintf("This is the %s service from %s.", operator, origin)
	case operator != "":
		return fmt.Sprintf("This is the %s service.", operator)
	case origin != "":
		return fmt.Sprintf("This service originated at %s.", origin)
	default:
		return ""
	}
}

func (s *Scheduler) drawRailPrimary(first board.Departure, showVia bool) {
	s.screen.Blank(railPrimaryArea)
	s.drawRailService(first, railLine1, "", showVia)
	s.markDirty(railPrimaryArea)
}

// drawRailService lays out one service: ordinal, time, platform, destination
// and the expected time right aligned.
func (s *Scheduler) drawRailService(departure board.Departure, y int, prefix string, showVia bool) {
	left := prefix + departure.ScheduledTime
	s.screen.DrawText(0, y, left)
	x := s.screen.TextWidth(prefix+"00:00") + render.CharWidth

	if s.board.PlatformAvailable && !s.settings.HidePlatform {
		s.screen.DrawText(x, y, departure.Platform)
		x += s.screen.TextWidth("00") + render.CharWidth
	}

	expected := expectedText(departure)
	expectedWidth := s.screen.TextWidth(expected)
	s.screen.DrawText(render.Width-expectedWidth, y, expected)

	destination := departure.Destination
	if showVia && departure.Via != "" {
		destination = departure.Via
	}
	s.screen.DrawText(x, y, fitText(s.screen, destination, render.Width-expectedWidth-x-render.CharWidth))
}

func expectedText(departure board.Departure) string {
	expected := departure.Expected()
	if expected != "" && unicode.IsDigit(rune(expected[0])) {
		return "Exp " + expected
	}

	return expected
}

func ordinal(index int) string {
	switch n := index + 1; n {
	case 1:
		return "1st "
	case 2:
		return "2nd "
	case 3:
		return "3rd "
	default:
		return fmt.Sprintf("%dth ", n)
	}
}

func (s *Scheduler) animateVia(now time.Time) {
	if s.nextVia.IsZero() || now.Before(s.nextVia) {
		return
	}

	first, ok := s.board.Departure(0)
	if !ok || first.Via == "" {
		s.nextVia = time.Time{}
		return
	}

	s.viaShown = !s.viaShown
	s.drawRailPrimary(first, s.viaShown)

	if s.viaShown {
		s.nextVia = now.Add(viaShownFor)
	} else {
		s.nextVia = now.Add(destinationFor)
	}
}

func (s *Scheduler) message(index int) string {
	if index < 0 || index >= len(s.messages) {
		return ""
	}

	return s.messages[index]
}

func centred(text string) bool {
	return !strings.HasPrefix(text, callingAtPrefix)
}

func (s *Scheduler) animateRailMessages(now time.Time) {
	if s.settings.NoScrolling {
		return
	}

	a := &s.line2
	switch a.Phase {
	case Entering:
		s.screen.Blank(railMessagesArea)
		s.screen.SetClip(railMessagesArea)

		previous := s.message(a.Previous)
		if previous != "" && a.PreviousWidth < render.Width && centred(previous) {
			s.screen.CentreText(railLine2+a.Offset-railStep-2, previous)
		}

		current := s.message(a.Index)
		if a.Width < render.Width && centred(current) {
			s.screen.CentreText(railLine2+a.Offset, current)
		} else {
			s.screen.DrawText(0, railLine2+a.Offset, current)
		}

		s.screen.ClearClip()
		s.markDirty(railMessagesArea)

		if a.Offset > 0 {
			a.Offset--
			return
		}
		a.Phase = Scrolling
		a.Scroll = 0
		a.Due = now.Add(railMessageEnter)
	case Scrolling:
		if !a.due(now) {
			return
		}
		if a.Width < render.Width {
			a.Phase = Holding
			a.Due = now.Add(railMessageHold)
			return
		}

		s.screen.Blank(railMessagesArea)
		s.screen.DrawText(a.Scroll, railLine2, s.message(a.Index))
		s.markDirty(railMessagesArea)

		a.Scroll--
		if a.Scroll < -a.Width {
			a.Phase = Holding
			a.Due = now.Add(scrollPause)
		}
	case Exiting:
		if len(s.messages) == 0 {
			a.Phase = Idle
			return
		}

		a.Previous = a.Index
		a.PreviousWidth = a.Width
		a.Index = (a.Index + 1) % len(s.messages)
		if a.Previous == a.Index && len(s.messages) == 1 && a.Width >= render.Width {
			a.Previous = -1
		}
		a.Width = s.screen.TextWidth(s.message(a.Index))
		a.Offset = railStep
		a.Phase = Entering
	default:
		if !a.due(now) || len(s.messages) == 0 {
			return
		}
		a.Phase = Exiting
	}
}

func (s *Scheduler) drawRailLine3Item(index int, y int) {
	count := s.board.Departures.Len()

	switch {
	case index >= 0 && index < count:
		departure, _ := s.board.Departure(index)
		s.drawRailService(departure, y, ordinal(index), false)
	case index == count && s.weatherLine != "":
		s.screen.CentreText(y, s.weatherLine)
	default:
		s.screen.CentreText(y, railAttribution)
	}
}

// animateRailServices cycles line 3 through the later services, the weather
// and the attribution.
func (s *Scheduler) animateRailServices(now time.Time) {
	a := &s.line3
	count := s.board.Departures.Len()

	switch a.Phase {
	case Entering:
		s.screen.Blank(railServicesArea)
		s.screen.SetClip(railServicesArea)
		if a.Previous > 0 {
			s.drawRailLine3Item(a.Previous, railLine3+a.Offset-railStep-2)
		}
		s.drawRailLine3Item(a.Index, railLine3+a.Offset)
		s.screen.ClearClip()
		s.markDirty(railServicesArea)

		if a.Offset > 0 {
			a.Offset--
			return
		}
		a.Phase = Holding
		a.Due = now.Add(railServiceHold)
	default:
		if !a.due(now) {
			return
		}

		if count <= 1 && s.weatherLine == "" {
			s.screen.Blank(railServicesArea)
			s.drawRailLine3Item(count, railLine3)
			s.markDirty(railServicesArea)
			a.Phase = Holding
			a.Due = now.Add(railStaticHold)
			return
		}
		a.Phase = Exiting
	case Exiting:
		last := count
		if s.weatherLine != "" {
			last = count + 1
		}

		a.Previous = a.Index
		a.Index++
		if a.Index > last {
			switch {
			case count == 0:
				a.Index = 0
			case s.settings.NoScrolling && count > 1:
				a.Index = 2
			default:
				a.Index = 1
			}
		}

		a.Offset = railStep
		a.Phase = Entering
	}
}

// fitText clips text to width, marking the cut with an ellipsis.
func fitText(screen render.Renderer, text string, width int) string {
	if screen.TextWidth(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && screen.TextWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}

	return strings.TrimRight(string(runes), " ") + "..."
}
