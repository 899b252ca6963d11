package headlines

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	MaxTitles     = 5
	TitleCapacity = 140
)

// Set is the latest batch of headline titles in feed order.
type Set struct {
	Titles bounded.List[string]
}

func newSet() Set {
	return Set{Titles: bounded.NewList[string](MaxTitles)}
}

// Message joins the titles into one line for the board's message rotation.
func (s Set) Message(source string) string {
	if s.Titles.Len() == 0 {
		return ""
	}

	message := strings.Join(s.Titles.Items, " • ")
	if source != "" {
		message = source + ": " + message
	}

	return message
}

type schema struct {
	path    feed.TagPath
	working Set
	title   string
	inTitle bool
}

func (s *schema) Reset() {
	s.path.Reset()
	s.working = newSet()
	s.title = ""
	s.inTitle = false
}

func (s *schema) Complete() bool {
	return s.working.Titles.Full()
}

func (s *schema) HandleXML(token feed.XMLToken) {
	switch token.Kind {
	case feed.StartTag:
		s.path.Track(token)
		if s.path.HasSuffix("item/title") {
			s.inTitle = true
			s.title = ""
		}
	case feed.Text:
		if s.inTitle {
			s.title += token.Text
		}
	case feed.EndTag:
		if s.inTitle && s.path.HasSuffix("item/title") {
			s.inTitle = false
			if title := strings.TrimSpace(s.title); title != "" {
				s.working.Titles.Append(bounded.Truncate(title, TitleCapacity))
			}
		}
		s.path.Track(token)
	}
}

type Config struct {
	URL string

	// Source prefixes the combined message, e.g. "BBC News"
	Source string
}

type Client struct {
	http   *feed.Client
	config Config

	schema *schema
	parser feed.Parser
	record feed.Record[Set]
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	parsed, err := url.Parse(config.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.Errorf("invalid feed url %q", config.URL)
	}

	client := &Client{
		http:   fetcher,
		config: config,
		schema: &schema{working: newSet()},
		record: feed.Record[Set]{Name: "headlines"},
	}
	client.parser = feed.XML(client.schema)

	return client, nil
}

func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	outcome := c.http.Fetch(ctx, feed.Request{URL: c.config.URL, Progress: progress}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	working := c.schema.working
	working.Titles = working.Titles.Clone()
	outcome.Result = c.record.Promote(working)

	return outcome
}

func (c *Client) Set() Set {
	return c.record.Current()
}

func (c *Client) Loaded() bool {
	return c.record.Loaded()
}

// Message is the combined headline line, or "" before the first load.
func (c *Client) Message() string {
	return c.record.Current().Message(c.config.Source)
}
