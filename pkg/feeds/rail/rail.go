package rail

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	DefaultEndpoint = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb12.asmx"
	soapAction      = "http://thalesgroup.com/RTTI/2015-05-14/ldb/GetDepBoardWithDetails"

	// Extra rows are requested when filtering so the board can still be filled
	rows         = 10
	filteredRows = 20
)

var crsPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Config struct {
	Endpoint   string
	Token      string
	CRS        string
	FilterCRS  string
	TimeOffset int

	Platforms  string
	Expression string
}

// Client fetches National Rail departure boards over the Darwin Lite SOAP API.
type Client struct {
	http   *feed.Client
	config Config

	schema *schema
	parser feed.Parser
	record feed.Record[board.Board]
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	config.CRS = strings.ToUpper(strings.TrimSpace(config.CRS))
	config.FilterCRS = strings.ToUpper(strings.TrimSpace(config.FilterCRS))

	if !crsPattern.MatchString(config.CRS) {
		return nil, errors.Errorf("invalid station code %q", config.CRS)
	}
	if config.FilterCRS != "" && !crsPattern.MatchString(config.FilterCRS) {
		return nil, errors.Errorf("invalid destination filter station code %q", config.FilterCRS)
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	filter, err := board.NewFilter(config.Platforms, config.Expression)
	if err != nil {
		return nil, err
	}

	client := &Client{
		http:   fetcher,
		config: config,
		schema: newSchema(filter),
		record: feed.Record[board.Board]{Name: "rail"},
	}
	client.parser = feed.XML(client.schema)

	return client, nil
}

func (c *Client) envelope() []byte {
	numRows := rows
	if !c.schema.filter.Empty() {
		numRows = filteredRows
	}

	filter := ""
	if c.config.FilterCRS != "" {
		filter = fmt.Sprintf("<ldb:filterCrs>%s</ldb:filterCrs><ldb:filterType>to</ldb:filterType>", c.config.FilterCRS)
	}

	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>`+
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:typ="http://thalesgroup.com/RTTI/2013-11-28/Token/types" xmlns:ldb="http://thalesgroup.com/RTTI/2021-11-01/ldb/">`+
		`<soap:Header><typ:AccessToken><typ:TokenValue>%s</typ:TokenValue></typ:AccessToken></soap:Header>`+
		`<soap:Body><ldb:GetDepBoardWithDetailsRequest><ldb:numRows>%d</ldb:numRows><ldb:crs>%s</ldb:crs>%s<ldb:timeOffset>%d</ldb:timeOffset><ldb:timeWindow>120</ldb:timeWindow></ldb:GetDepBoardWithDetailsRequest></soap:Body>`+
		`</soap:Envelope>`, xmlEscape(c.config.Token), numRows, c.config.CRS, filter, c.config.TimeOffset))
}

// Update fetches the board and promotes it if it parsed cleanly.
func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	if strings.TrimSpace(c.config.Token) == "" {
		return feed.Outcome{Result: feed.Unauthorized, Message: "no National Rail token configured"}
	}

	outcome := c.http.Fetch(ctx, feed.Request{
		Method: http.MethodPost,
		URL:    c.config.Endpoint,
		Header: http.Header{
			"Content-Type": []string{"text/xml; charset=utf-8"},
			"Soapaction":   []string{soapAction},
		},
		Body:         c.envelope(),
		AcceptStatus: []int{http.StatusInternalServerError},
		Progress:     progress,
	}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	if fault := strings.TrimSpace(c.schema.fault); fault != "" {
		outcome.Message = fault
		if strings.Contains(strings.ToLower(fault), "token") {
			outcome.Result = feed.Unauthorized
		} else {
			outcome.Result = feed.DataError
		}
		return outcome
	}

	if outcome.Status != http.StatusOK {
		outcome.Result = feed.HTTPError
		return outcome
	}

	if !c.schema.resultSeen {
		outcome.Result = feed.Incomplete
		outcome.Message = "no station board in response"
		return outcome
	}

	outcome.Result = c.record.Promote(c.schema.working.Clone())

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

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;").Replace(s)
}
