package bus

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	DefaultEndpoint = "https://bustimes.org"
	Attribution     = "Powered by bustimes.org"
)

var atcoPattern = regexp.MustCompile(`^[0-9A-Za-z]{4,12}$`)

type Config struct {
	Endpoint string
	ATCOCode string

	// Lines is a comma separated list of line names to show
	Lines      string
	Expression string

	Location string
	TimeZone *time.Location
}

// Client reads live bus departures from bustimes.org.
type Client struct {
	http   *feed.Client
	config Config

	schema     *schema
	parser     feed.Parser
	stopSchema *stopSchema
	stopParser feed.Parser
	record     feed.Record[board.Board]

	location string
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	config.ATCOCode = strings.TrimSpace(config.ATCOCode)
	if !atcoPattern.MatchString(config.ATCOCode) {
		return nil, errors.Errorf("invalid ATCO code %q", config.ATCOCode)
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.TimeZone == nil {
		config.TimeZone = time.Local
	}

	filter, err := board.NewFilter(config.Lines, config.Expression)
	if err != nil {
		return nil, err
	}

	client := &Client{
		http:       fetcher,
		config:     config,
		schema:     newSchema(filter, config.TimeZone),
		stopSchema: &stopSchema{},
		record:     feed.Record[board.Board]{Name: "bus"},
		location:   config.Location,
	}
	client.parser = feed.JSON(client.schema)
	client.stopParser = feed.JSON(client.stopSchema)

	return client, nil
}

func (c *Client) endpoint(format string, args ...any) string {
	return strings.TrimSuffix(c.config.Endpoint, "/") + fmt.Sprintf(format, args...)
}

// StopName looks up the display name of the configured stop.
func (c *Client) StopName(ctx context.Context) (string, feed.Outcome) {
	outcome := c.http.Fetch(ctx, feed.Request{
		URL: c.endpoint("/api/stops/%s", c.config.ATCOCode),
	}, c.stopParser)

	if outcome.Result != feed.Success {
		return "", outcome
	}

	name := c.stopSchema.Name()
	if name == "" {
		outcome.Result = feed.DataError
		outcome.Message = "stop has no name"
	}

	return name, outcome
}

func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	if c.location == "" {
		name, outcome := c.StopName(ctx)
		if outcome.Result == feed.Success {
			c.location = name
		} else {
			log.Warn().Str("atco", c.config.ATCOCode).Str("result", outcome.String()).Msg("Failed to look up stop name")
		}
	}

	outcome := c.http.Fetch(ctx, feed.Request{
		URL:      c.endpoint("/api/stops/%s/departures", c.config.ATCOCode),
		Progress: progress,
	}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	working := c.schema.working.Clone()
	working.SetLocation(c.location)
	working.AddMessage(Attribution)

	outcome.Result = c.record.Promote(working)

	return outcome
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
