package configserver

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/liip/sheriff"
	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/status"
)

type infoView struct {
	Version     string    `json:"version" groups:"basic"`
	Mode        string    `json:"mode" groups:"basic"`
	Result      string    `json:"result" groups:"basic"`
	Message     string    `json:"message" groups:"basic"`
	Fatal       bool      `json:"fatal" groups:"basic"`
	Sleeping    bool      `json:"sleeping" groups:"basic"`
	UpdatedAt   time.Time `json:"updated_at" groups:"basic"`
	Successes   int       `json:"successes" groups:"detailed"`
	Failures    int       `json:"failures" groups:"detailed"`
	LastSuccess time.Time `json:"last_success" groups:"detailed"`
	LastFailure time.Time `json:"last_failure" groups:"detailed"`
	Brightness  int       `json:"brightness" groups:"detailed"`
	Weather     string    `json:"weather" groups:"detailed"`
	Headlines   string    `json:"headlines" groups:"detailed"`
}

type boardView struct {
	Location          string            `json:"location" groups:"basic"`
	Departures        []board.Departure `json:"departures" groups:"basic" copier:"-"`
	Messages          []string          `json:"messages" groups:"basic" copier:"-"`
	PlatformAvailable bool              `json:"platform_available" groups:"detailed"`
	CallingPoints     string            `json:"calling_points" groups:"detailed"`
	Origin            string            `json:"origin" groups:"detailed"`
	Reason            string            `json:"reason" groups:"detailed"`
}

func groups(detailed bool) []string {
	if detailed {
		return []string{"basic", "detailed"}
	}

	return []string{"basic"}
}

func renderInfo(snapshot status.Snapshot, version string, detailed bool) (interface{}, error) {
	view := infoView{}
	if err := copier.Copy(&view, &snapshot); err != nil {
		return nil, errors.Wrap(err, "copy status")
	}
	view.Version = version

	return sheriff.Marshal(&sheriff.Options{Groups: groups(detailed)}, view)
}

func renderBoard(current board.Board, detailed bool) (interface{}, error) {
	view := boardView{}
	if err := copier.Copy(&view, &current); err != nil {
		return nil, errors.Wrap(err, "copy board")
	}
	view.Departures = append([]board.Departure{}, current.Departures.Items...)
	view.Messages = append([]string{}, current.Messages.Items...)

	return sheriff.Marshal(&sheriff.Options{Groups: groups(detailed)}, view)
}
