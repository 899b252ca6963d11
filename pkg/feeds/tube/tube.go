package tube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
	"golang.org/x/exp/slices"
)

const (
	DefaultEndpoint = "https://api.tfl.gov.uk"
	Attribution     = "Powered by TfL Open Data"
)

var stopPattern = regexp.MustCompile(`^[0-9A-Z]{4,20}$`)

var destinationSuffixes = []string{" Underground Station", " DLR Station", " (H&C Line)", " Rail Station"}

type Config struct {
	Endpoint string
	AppKey   string
	StopID   string

	// Location overrides the station name reported by the feed
	Location string
	TimeZone *time.Location
}

// Client fetches TfL StopPoint arrival predictions.
type Client struct {
	http   *feed.Client
	config Config

	schema *schema
	parser feed.Parser
	record feed.Record[board.Board]
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	config.StopID = strings.ToUpper(strings.TrimSpace(config.StopID))
	if !stopPattern.MatchString(config.StopID) {
		return nil, errors.Errorf("invalid stop point id %q", config.StopID)
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.TimeZone == nil {
		config.TimeZone = time.Local
	}

	client := &Client{
		http:   fetcher,
		config: config,
		schema: newSchema(),
		record: feed.Record[board.Board]{Name: "tube"},
	}
	client.parser = feed.JSON(client.schema)

	return client, nil
}

func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	address := fmt.Sprintf("%s/StopPoint/%s/Arrivals", strings.TrimSuffix(c.config.Endpoint, "/"), c.config.StopID)
	if c.config.AppKey != "" {
		address += "?app_key=" + url.QueryEscape(c.config.AppKey)
	}

	outcome := c.http.Fetch(ctx, feed.Request{
		URL:      address,
		Header:   http.Header{"User-Agent": []string{"curl/7.54.1"}},
		Progress: progress,
	}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	if !c.schema.list {
		outcome.Result = feed.DataError
		outcome.Message = strings.TrimSpace(c.schema.errorStatus + " " + c.schema.errorMessage)
		if outcome.Message == "" {
			outcome.Message = "unexpected response"
		}
		return outcome
	}

	outcome.Result = c.record.Promote(c.build())

	return outcome
}

func (c *Client) build() board.Board {
	predictions := c.schema.predictions.Clone().Items

	slices.SortStableFunc(predictions, func(a, b prediction) int {
		return a.TimeToStation - b.TimeToStation
	})

	b := board.New()
	b.SetLocation(c.config.Location)
	b.PlatformAvailable = true

	for _, p := range predictions {
		if b.Location == "" && p.Station != "" {
			b.SetLocation(cleanDestination(p.Station))
		}

		departure := board.Departure{
			Destination:   cleanDestination(p.Destination),
			Via:           p.Towards,
			Platform:      p.Platform,
			Operator:      p.Line,
			ServiceType:   board.ServiceTypeUnderground,
			TimeToStation: p.TimeToStation,
			ExpectedTime:  dueText(p.TimeToStation),
			Status:        board.DepartureStatusExpected,
		}
		if arrival, err := time.Parse(time.RFC3339, p.ExpectedArrival); err == nil {
			departure.ScheduledTime = arrival.In(c.config.TimeZone).Format("15:04")
		}
		if departure.Destination == "" {
			departure.Destination = "Check front of train"
		}
		departure.Truncate(board.TubePlatformCap)

		if !b.Departures.Append(departure) {
			break
		}
	}

	b.AddMessage(Attribution)

	return b
}

func (c *Client) Board() board.Board {
	return c.record.Current()
}

func (c *Client) Loaded() bool {
	return c.record.Loaded()
}

func (c *Client) Close() {
	c.record.Clear()
}

func cleanDestination(name string) string {
	for _, suffix := range destinationSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}

	return strings.TrimSpace(name)
}

func dueText(seconds int) string {
	minutes := seconds / 60
	switch {
	case minutes < 1:
		return "Due"
	case minutes == 1:
		return "1 min"
	default:
		return fmt.Sprintf("%d mins", minutes)
	}
}
