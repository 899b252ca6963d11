package board

import (
	"strings"

	"github.com/travigo/departures-board/pkg/bounded"
)

const (
	LocationCapacity    = 45
	DestinationCapacity = 45
	ViaCapacity         = 45
	TimeCapacity        = 6
	ExpectedCapacity    = 11
	OperatorCapacity    = 30
	RailPlatformCap     = 4
	BusLineCap          = 9
	TubePlatformCap     = 20
	MessageCapacity     = 400
	CallingCapacity     = 400
	ReasonCapacity      = 400

	MaxDepartures = 9
	MaxMessages   = 4
)

type ServiceType string

const (
	ServiceTypeTrain       ServiceType = "train"
	ServiceTypeBus         ServiceType = "bus"
	ServiceTypeFerry       ServiceType = "ferry"
	ServiceTypeUnderground ServiceType = "underground"
)

type DepartureStatus string

const (
	DepartureStatusScheduled DepartureStatus = "Scheduled"
	DepartureStatusOnTime    DepartureStatus = "OnTime"
	DepartureStatusExpected  DepartureStatus = "Expected"
	DepartureStatusDelayed   DepartureStatus = "Delayed"
	DepartureStatusCancelled DepartureStatus = "Cancelled"
)

type Departure struct {
	Destination   string          `groups:"basic"`
	Via           string          `groups:"basic"`
	Platform      string          `groups:"basic"`
	ScheduledTime string          `groups:"basic"`
	ExpectedTime  string          `groups:"basic"`
	Status        DepartureStatus `groups:"basic"`

	Operator      string      `groups:"detailed"`
	ServiceType   ServiceType `groups:"detailed"`
	Length        int         `groups:"detailed"`
	TimeToStation int         `groups:"detailed"`
	Cancelled     bool        `groups:"detailed"`
	Delayed       bool        `groups:"detailed"`
}

// Board is the location's current departures plus the free text shown around them.
type Board struct {
	Location          string
	PlatformAvailable bool

	Departures bounded.List[Departure]
	Messages   bounded.List[string]

	// Detail of the first departure, shown on the rail board's scrolling line
	CallingPoints string
	Origin        string
	Reason        string
}

func New() Board {
	return Board{
		Departures: bounded.NewList[Departure](MaxDepartures),
		Messages:   bounded.NewList[string](MaxMessages),
	}
}

// Reset empties the board ahead of a fetch. Lists drop their backing arrays so
// nothing is shared with a board that was promoted earlier.
func (b *Board) Reset() {
	*b = New()
}

func (b *Board) SetLocation(location string) {
	bounded.Set(&b.Location, location, LocationCapacity)
}

func (b *Board) AddMessage(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}

	return b.Messages.Append(bounded.Truncate(message, MessageCapacity))
}

// Clone deep copies the board.
func (b Board) Clone() Board {
	clone := b
	clone.Departures = b.Departures.Clone()
	clone.Messages = b.Messages.Clone()

	return clone
}

func (b Board) Empty() bool {
	return b.Departures.Len() == 0
}

// Departure returns the i-th departure, or false past the end.
func (b Board) Departure(i int) (Departure, bool) {
	return b.Departures.At(i)
}

// Expected is what the board shows in the expected column: a time if the
// service runs late, otherwise the status text.
func (d Departure) Expected() string {
	switch {
	case d.Cancelled:
		return "Cancelled"
	case d.ExpectedTime != "":
		return d.ExpectedTime
	case d.Delayed:
		return "Delayed"
	default:
		return "On time"
	}
}

// Truncate enforces every field capacity. platformCapacity depends on the feed.
func (d *Departure) Truncate(platformCapacity int) {
	d.Destination = bounded.Truncate(d.Destination, DestinationCapacity)
	d.Via = bounded.Truncate(d.Via, ViaCapacity)
	d.Platform = bounded.Truncate(d.Platform, platformCapacity)
	d.ScheduledTime = bounded.Truncate(d.ScheduledTime, TimeCapacity)
	d.ExpectedTime = bounded.Truncate(d.ExpectedTime, ExpectedCapacity)
	d.Operator = bounded.Truncate(d.Operator, OperatorCapacity)
}

// UpdateStatus derives the status from the raw expected text the feeds report.
func (d *Departure) UpdateStatus() {
	switch strings.ToLower(d.ExpectedTime) {
	case "cancelled":
		d.Cancelled = true
		d.Status = DepartureStatusCancelled
		d.ExpectedTime = ""
	case "delayed":
		d.Delayed = true
		d.Status = DepartureStatusDelayed
		d.ExpectedTime = ""
	case "on time":
		d.Status = DepartureStatusOnTime
		d.ExpectedTime = ""
	case "":
		if d.Cancelled {
			d.Status = DepartureStatusCancelled
		} else {
			d.Status = DepartureStatusScheduled
		}
	default:
		if d.ExpectedTime == d.ScheduledTime {
			d.Status = DepartureStatusOnTime
			d.ExpectedTime = ""
		} else {
			d.Status = DepartureStatusExpected
		}
	}

	if d.Cancelled {
		d.Status = DepartureStatusCancelled
	}
}
