package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	DefaultEndpoint = "https://api.openweathermap.org"
	MessageCapacity = 46
)

// Conditions is the current weather at the board's location.
type Conditions struct {
	Description string
	Temperature float64
	WindSpeed   float64
}

// Message composes the single line shown on the board, e.g.
// "Light rain 12°C Wind 4m/s".
func (c Conditions) Message() string {
	description := c.Description
	if r, size := utf8.DecodeRuneInString(description); r != utf8.RuneError {
		description = string(unicode.ToUpper(r)) + description[size:]
	}

	message := fmt.Sprintf("%s %d°C Wind %dm/s", description, int(math.Round(c.Temperature)), int(math.Round(c.WindSpeed)))

	return bounded.Truncate(strings.TrimSpace(message), MessageCapacity)
}

type schema struct {
	context feed.JSONContext
	working Conditions
	seen    bool
}

func (s *schema) Reset() {
	s.context.Reset()
	s.working = Conditions{}
	s.seen = false
}

func (s *schema) Complete() bool {
	return false
}

func (s *schema) HandleJSON(token feed.JSONToken) {
	s.context.Track(token)

	if token.Kind != feed.Value {
		return
	}

	switch {
	case s.context.Key == "description" && s.context.Array() == "weather":
		// Only the primary condition is shown
		if s.working.Description == "" {
			s.working.Description = token.Text
		}
	case s.context.Key == "temp" && s.context.Object() == "main":
		s.working.Temperature, _ = strconv.ParseFloat(token.Text, 64)
		s.seen = true
	case s.context.Key == "speed" && s.context.Object() == "wind":
		s.working.WindSpeed, _ = strconv.ParseFloat(token.Text, 64)
	}
}

type Config struct {
	Endpoint  string
	APIKey    string
	Latitude  float64
	Longitude float64
}

type Client struct {
	http   *feed.Client
	config Config

	schema *schema
	parser feed.Parser
	record feed.Record[Conditions]
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	if config.Latitude < -90 || config.Latitude > 90 || config.Longitude < -180 || config.Longitude > 180 {
		return nil, errors.Errorf("invalid coordinates %f,%f", config.Latitude, config.Longitude)
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	client := &Client{
		http:   fetcher,
		config: config,
		schema: &schema{},
		record: feed.Record[Conditions]{Name: "weather"},
	}
	client.parser = feed.JSON(client.schema)

	return client, nil
}

func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	if c.config.APIKey == "" {
		return feed.Outcome{Result: feed.Unauthorized, Message: "no weather api key configured"}
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(c.config.Latitude, 'f', 4, 64))
	query.Set("lon", strconv.FormatFloat(c.config.Longitude, 'f', 4, 64))
	query.Set("units", "metric")
	query.Set("appid", c.config.APIKey)

	outcome := c.http.Fetch(ctx, feed.Request{
		URL:      strings.TrimSuffix(c.config.Endpoint, "/") + "/data/2.5/weather?" + query.Encode(),
		Progress: progress,
	}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	if !c.schema.seen || c.schema.working.Description == "" {
		outcome.Result = feed.DataError
		outcome.Message = "no current conditions in response"
		return outcome
	}

	outcome.Result = c.record.Promote(c.schema.working)

	return outcome
}

func (c *Client) Conditions() Conditions {
	return c.record.Current()
}

func (c *Client) Loaded() bool {
	return c.record.Loaded()
}

// Message is the composed weather line, or "" before the first load.
func (c *Client) Message() string {
	if !c.record.Loaded() {
		return ""
	}
	return c.record.Current().Message()
}
