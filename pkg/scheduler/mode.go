package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
	"github.com/travigo/departures-board/pkg/feeds/release"
)

type Mode int

const (
	Rail Mode = iota
	Tube
	Bus
)

func (m Mode) String() string {
	switch m {
	case Rail:
		return "rail"
	case Tube:
		return "tube"
	case Bus:
		return "bus"
	default:
		return "unknown"
	}
}

func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "rail", "train", "nationalrail":
		return Rail, nil
	case "tube", "underground", "tfl":
		return Tube, nil
	case "bus":
		return Bus, nil
	default:
		return Rail, errors.Errorf("unknown board mode %q", value)
	}
}

// RefreshInterval is how long a successful board stays before the next fetch.
func (m Mode) RefreshInterval(fast bool) time.Duration {
	switch m {
	case Tube:
		return 30 * time.Second
	case Bus:
		return 45 * time.Second
	default:
		if fast {
			return 45 * time.Second
		}
		return 150 * time.Second
	}
}

// FrameBudget paces one scheduler iteration.
func (m Mode) FrameBudget() time.Duration {
	switch m {
	case Tube:
		return 18 * time.Millisecond
	case Bus:
		return 40 * time.Millisecond
	default:
		return 25 * time.Millisecond
	}
}

// Source is the feed client behind the active board.
type Source interface {
	Update(ctx context.Context, progress func(int64)) feed.Outcome
	Board() board.Board
	Close()
}

// Feed is a supplementary feed that contributes one line of text.
type Feed interface {
	Update(ctx context.Context, progress func(int64)) feed.Outcome
	Message() string
}

type Releases interface {
	Update(ctx context.Context, progress func(int64)) feed.Outcome
	Descriptor() release.Descriptor
	Token() string
}

// Factory builds clients from the current configuration. Headlines, Weather
// and Releases return nil when the feed is not configured.
type Factory interface {
	Source(mode Mode) (Source, error)
	Headlines() Feed
	Weather() Feed
	Releases() Releases
}

type SleepWindow struct {
	Enabled bool
	Starts  int
	Ends    int
}

// Asleep reports whether hour falls inside the window. The window may wrap midnight.
func (w SleepWindow) Asleep(hour int) bool {
	if !w.Enabled || w.Starts == w.Ends {
		return false
	}
	if w.Starts < w.Ends {
		return hour >= w.Starts && hour < w.Ends
	}

	return hour >= w.Starts || hour < w.Ends
}

type Settings struct {
	Mode         Mode
	FastRefresh  bool
	NoScrolling  bool
	HidePlatform bool
	Brightness   int
	Sleep        SleepWindow

	DailyFirmwareCheck bool
	Version            string

	TimeZone *time.Location
}

func (s Settings) location() *time.Location {
	if s.TimeZone == nil {
		return time.Local
	}

	return s.TimeZone
}
