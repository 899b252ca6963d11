package bus

import (
	"time"

	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
)

// MaxReadServices bounds how many departures are read before the stream is cut,
// whether or not they pass the line filter.
const MaxReadServices = 20

type schema struct {
	filter   *board.Filter
	timeZone *time.Location

	context feed.JSONContext
	working board.Board
	read    int

	line     string
	current  board.Departure
	aimed    string
	expected string
}

func newSchema(filter *board.Filter, timeZone *time.Location) *schema {
	return &schema{filter: filter, timeZone: timeZone, working: board.New()}
}

func (s *schema) Reset() {
	s.context.Reset()
	s.working.Reset()
	s.read = 0
	s.resetDeparture()
}

func (s *schema) resetDeparture() {
	s.line = ""
	s.current = board.Departure{}
	s.aimed = ""
	s.expected = ""
}

func (s *schema) Complete() bool {
	return s.read >= MaxReadServices
}

func (s *schema) HandleJSON(token feed.JSONToken) {
	if token.Kind == feed.ObjectEnd && s.context.Depth() == 3 && s.context.Array() == "departures" {
		s.finishDeparture()
	}

	s.context.Track(token)

	if token.Kind != feed.Value || token.Text == "null" {
		return
	}

	switch {
	case s.context.Key == "line_name" && s.context.Object() == "service":
		s.line = token.Text
	case s.context.Key == "name" && s.context.Object() == "destination":
		s.current.Destination = token.Text
	case s.context.Depth() == 3 && s.context.Key == "aimed_departure_time":
		s.aimed = token.Text
	case s.context.Depth() == 3 && s.context.Key == "expected_departure_time":
		s.expected = token.Text
	}
}

func (s *schema) finishDeparture() {
	s.read++

	departure := s.current
	departure.Platform = s.line
	departure.ServiceType = board.ServiceTypeBus
	departure.ScheduledTime = clockTime(s.aimed, s.timeZone)
	departure.ExpectedTime = clockTime(s.expected, s.timeZone)
	departure.UpdateStatus()
	departure.Truncate(board.BusLineCap)

	if s.filter.Match(departure.Platform, departure) {
		s.working.Departures.Append(departure)
	}

	s.resetDeparture()
}

func clockTime(value string, timeZone *time.Location) string {
	if value == "" {
		return ""
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return ""
	}

	return parsed.In(timeZone).Format("15:04")
}

// stopSchema reads a stop's display name, preferring the long form.
type stopSchema struct {
	context   feed.JSONContext
	longName  string
	shortName string
}

func (s *stopSchema) Reset() {
	s.context.Reset()
	s.longName = ""
	s.shortName = ""
}

func (s *stopSchema) Complete() bool {
	return s.longName != ""
}

func (s *stopSchema) HandleJSON(token feed.JSONToken) {
	s.context.Track(token)

	if token.Kind != feed.Value || s.context.Depth() != 1 || token.Text == "null" {
		return
	}

	switch s.context.Key {
	case "long_name":
		s.longName = token.Text
	case "name":
		s.shortName = token.Text
	}
}

func (s *stopSchema) Name() string {
	if s.longName != "" {
		return s.longName
	}
	return s.shortName
}
