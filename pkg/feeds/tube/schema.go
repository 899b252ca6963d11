package tube

import (
	"strconv"
	"strings"

	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

// Predictions beyond this are not read; the API returns them unsorted so the board
// is picked from everything read.
const maxReadPredictions = 40

type prediction struct {
	Platform        string
	Destination     string
	Towards         string
	Line            string
	Station         string
	TimeToStation   int
	ExpectedArrival string
}

type schema struct {
	context feed.JSONContext
	list    bool

	current     prediction
	predictions bounded.List[prediction]

	errorMessage string
	errorStatus  string
}

func newSchema() *schema {
	return &schema{predictions: bounded.NewList[prediction](maxReadPredictions)}
}

func (s *schema) Reset() {
	s.context.Reset()
	s.list = false
	s.current = prediction{}
	s.predictions.Reset()
	s.errorMessage = ""
	s.errorStatus = ""
}

func (s *schema) Complete() bool {
	return s.predictions.Full()
}

func (s *schema) HandleJSON(token feed.JSONToken) {
	if s.context.Depth() == 0 && (token.Kind == feed.ArrayStart || token.Kind == feed.ObjectStart) {
		s.list = token.Kind == feed.ArrayStart
	}

	// A prediction is complete when its object closes at array element depth
	if token.Kind == feed.ObjectEnd && s.list && s.context.Depth() == 2 {
		s.predictions.Append(s.current)
		s.current = prediction{}
	}

	s.context.Track(token)

	if token.Kind != feed.Value {
		return
	}

	// TfL errors come back as a single object rather than an array
	if !s.list && s.context.Depth() == 1 {
		switch s.context.Key {
		case "message":
			s.errorMessage = token.Text
		case "httpStatusCode":
			s.errorStatus = token.Text
		}
		return
	}

	if !s.list || s.context.Depth() != 2 {
		return
	}

	switch s.context.Key {
	case "platformName":
		s.current.Platform = token.Text
	case "destinationName":
		s.current.Destination = token.Text
	case "towards":
		s.current.Towards = token.Text
	case "lineName":
		s.current.Line = token.Text
	case "stationName":
		s.current.Station = token.Text
	case "timeToStation":
		s.current.TimeToStation, _ = strconv.Atoi(strings.TrimSpace(token.Text))
	case "expectedArrival":
		s.current.ExpectedArrival = token.Text
	}
}
