package rail

import (
	"strconv"
	"strings"

	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	// NRCC messages arrive as HTML; the markup is kept up to this size and
	// stripped before the text is capped at board.MessageCapacity.
	messageMarkupCapacity = 4 * board.MessageCapacity
	faultCapacity         = 200
	maxCallingPoints      = 40
)

var serviceLists = map[string]board.ServiceType{
	"trainServices": board.ServiceTypeTrain,
	"busServices":   board.ServiceTypeBus,
	"ferryServices": board.ServiceTypeFerry,
}

// schema pulls a departure board out of a GetDepBoardWithDetails SOAP response.
type schema struct {
	filter *board.Filter

	path    feed.TagPath
	working board.Board

	resultSeen bool
	fault      string

	inService     bool
	service       board.Departure
	origin        string
	reason        string
	callingPoints bounded.List[string]
	callingPoint  string
	message       string
}

func newSchema(filter *board.Filter) *schema {
	return &schema{
		filter:        filter,
		working:       board.New(),
		callingPoints: bounded.NewList[string](maxCallingPoints),
	}
}

func (s *schema) Reset() {
	s.path.Reset()
	s.working.Reset()
	s.resultSeen = false
	s.fault = ""
	s.resetService()
}

func (s *schema) resetService() {
	s.inService = false
	s.service = board.Departure{}
	s.origin = ""
	s.reason = ""
	s.callingPoints.Reset()
	s.callingPoint = ""
}

// Complete once the board is full. The first service and its calling points are
// always appended before that can happen.
func (s *schema) Complete() bool {
	return s.working.Departures.Full()
}

func (s *schema) HandleXML(token feed.XMLToken) {
	switch token.Kind {
	case feed.StartTag:
		s.path.Track(token)
		s.startTag()
	case feed.EndTag:
		s.endTag()
		s.path.Track(token)
	case feed.Text:
		s.text(token.Text)
	}
}

func (s *schema) startTag() {
	switch {
	case s.path.Tag == "GetStationBoardResult":
		s.resultSeen = true
	case s.path.Tag == "service":
		if serviceType, ok := serviceLists[s.path.Parent]; ok {
			s.resetService()
			s.inService = true
			s.service.ServiceType = serviceType
		}
	case s.path.HasSuffix("nrccMessages/message"):
		s.message = ""
	case s.inService && s.path.HasSuffix("destination/location"):
		// Services that divide en route list every destination
		if s.service.Destination != "" {
			bounded.Append(&s.service.Destination, " & ", board.DestinationCapacity)
		}
	case s.inService && s.path.HasSuffix("origin/location"):
		if s.origin != "" {
			bounded.Append(&s.origin, " & ", board.LocationCapacity)
		}
	}
}

func (s *schema) endTag() {
	switch {
	case s.path.HasSuffix("nrccMessages/message"):
		s.working.AddMessage(feed.StripHTML(s.message))
		s.message = ""
	case s.inService && s.path.HasSuffix("callingPoint/locationName"):
		s.callingPoints.Append(s.callingPoint)
		s.callingPoint = ""
	case s.inService && s.path.Tag == "service":
		s.finishService()
	}
}

func (s *schema) text(text string) {
	if strings.TrimSpace(text) == "" && !s.path.HasSuffix("nrccMessages/message") {
		return
	}

	path := &s.path

	switch {
	case path.HasSuffix("Fault/faultstring"):
		bounded.Append(&s.fault, text, faultCapacity)
	case path.HasSuffix("GetStationBoardResult/locationName"):
		s.working.SetLocation(s.working.Location + text)
	case path.HasSuffix("GetStationBoardResult/platformAvailable"):
		s.working.PlatformAvailable = strings.TrimSpace(text) == "true"
	case path.HasSuffix("nrccMessages/message"):
		bounded.Append(&s.message, text, messageMarkupCapacity)
	case !s.inService:
		return
	case path.Parent == "service":
		s.serviceField(path.Tag, text)
	case path.HasSuffix("destination/location/locationName"):
		bounded.Append(&s.service.Destination, text, board.DestinationCapacity)
	case path.HasSuffix("destination/location/via"):
		bounded.Append(&s.service.Via, text, board.ViaCapacity)
	case path.HasSuffix("origin/location/locationName"):
		bounded.Append(&s.origin, text, board.LocationCapacity)
	case path.HasSuffix("callingPoint/locationName"):
		bounded.Append(&s.callingPoint, text, board.LocationCapacity)
	}
}

func (s *schema) serviceField(tag string, text string) {
	switch tag {
	case "std":
		bounded.Append(&s.service.ScheduledTime, text, board.TimeCapacity)
	case "etd":
		bounded.Append(&s.service.ExpectedTime, text, board.ExpectedCapacity)
	case "platform":
		bounded.Append(&s.service.Platform, text, board.RailPlatformCap)
	case "operator":
		bounded.Append(&s.service.Operator, text, board.OperatorCapacity)
	case "isCancelled":
		s.service.Cancelled = strings.TrimSpace(text) == "true"
	case "serviceType":
		switch strings.TrimSpace(text) {
		case "bus":
			s.service.ServiceType = board.ServiceTypeBus
		case "ferry":
			s.service.ServiceType = board.ServiceTypeFerry
		}
	case "length":
		s.service.Length, _ = strconv.Atoi(strings.TrimSpace(text))
	case "cancelReason", "delayReason":
		if s.reason == "" {
			bounded.Set(&s.reason, text, board.ReasonCapacity)
		}
	}
}

func (s *schema) finishService() {
	service := s.service
	service.UpdateStatus()
	service.Truncate(board.RailPlatformCap)

	first := s.working.Departures.Len() == 0

	if s.filter.Match(service.Platform, service) {
		if s.working.Departures.Append(service) && first {
			s.working.CallingPoints = bounded.Truncate(callingPointText(s.callingPoints.Items), board.CallingCapacity)
			s.working.Origin = s.origin
			s.working.Reason = s.reason
		}
	}

	s.resetService()
}

// callingPointText joins calling points as "A, B and C".
func callingPointText(points []string) string {
	switch len(points) {
	case 0:
		return ""
	case 1:
		return points[0]
	default:
		return strings.Join(points[:len(points)-1], ", ") + " and " + points[len(points)-1]
	}
}
