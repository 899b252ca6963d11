package tube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
)

const arrivals = `[
  {"$type":"Tfl.Api.Presentation.Entities.Prediction, Tfl.Api.Presentation.Entities","id":"-1","naptanId":"940GZZLUKSX","stationName":"King's Cross St. Pancras Underground Station","lineName":"Victoria","platformName":"Southbound - Platform 5","destinationName":"Brixton Underground Station","timeToStation":320,"towards":"Brixton","expectedArrival":"2025-05-01T09:05:20Z","timing":{"countdownServerAdjustment":"00:00:00","source":"0001-01-01T00:00:00"}},
  {"id":"-2","stationName":"King's Cross St. Pancras Underground Station","lineName":"Northern","platformName":"Northbound - Platform 7","destinationName":"High Barnet Underground Station","timeToStation":45,"towards":"High Barnet via Bank","expectedArrival":"2025-05-01T09:00:45Z"},
  {"id":"-3","stationName":"King's Cross St. Pancras Underground Station","lineName":"Piccadilly","platformName":"Westbound - Platform 6","timeToStation":95,"towards":"Check Front of Train","expectedArrival":"2025-05-01T09:01:35Z"}
]`

func testFetcher() *feed.Client {
	config := feed.DefaultConfig()
	config.ConnectAttempts = 1
	config.ResponseTimeout = time.Second
	config.BodyTimeout = time.Second
	return feed.NewClient(config)
}

func TestTubeUpdate(t *testing.T) {
	assert := assert.New(t)

	var path, key, agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("app_key")
		agent = r.Header.Get("User-Agent")
		fmt.Fprint(w, arrivals)
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{Endpoint: server.URL, AppKey: "key", StopID: "940gzzluksx", TimeZone: time.UTC})
	require.Nil(t, err)

	outcome := client.Update(context.Background(), nil)
	require.Equal(t, feed.Success, outcome.Result, outcome.Message)

	assert.Equal("/StopPoint/940GZZLUKSX/Arrivals", path)
	assert.Equal("key", key)
	assert.Equal("curl/7.54.1", agent)

	b := client.Board()
	assert.Equal("King's Cross St. Pancras", b.Location)
	require.Equal(t, 3, b.Departures.Len())

	first, _ := b.Departure(0)
	assert.Equal("High Barnet", first.Destination)
	assert.Equal("Northbound - Platform 7", first.Platform)
	assert.Equal("Due", first.ExpectedTime)
	assert.Equal("09:00", first.ScheduledTime)
	assert.Equal(board.ServiceTypeUnderground, first.ServiceType)

	second, _ := b.Departure(1)
	assert.Equal("Check front of train", second.Destination)
	assert.Equal("1 min", second.ExpectedTime)

	third, _ := b.Departure(2)
	assert.Equal("Brixton", third.Destination)
	assert.Equal("5 mins", third.ExpectedTime)
	assert.Equal(320, third.TimeToStation)

	assert.Equal([]string{Attribution}, b.Messages.Items)

	assert.Equal(feed.NoChange, client.Update(context.Background(), nil).Result)
}

func TestTubeErrorObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"$type":"Tfl.Api.Presentation.Entities.ApiError","timestampUtc":"2025-05-01T09:00:00Z","exceptionType":"EntityNotFoundException","httpStatusCode":404,"httpStatus":"NotFound","message":"The following stop point is not recognised: 940GZZLUXXX"}`)
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{Endpoint: server.URL, StopID: "940GZZLUXXX"})
	require.Nil(t, err)

	outcome := client.Update(context.Background(), nil)

	assert.Equal(t, feed.DataError, outcome.Result)
	assert.Equal(t, "404 The following stop point is not recognised: 940GZZLUXXX", outcome.Message)
	assert.False(t, client.Loaded())
}

func TestTubeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{Endpoint: server.URL, StopID: "940GZZLUKSX"})
	require.Nil(t, err)

	assert.Equal(t, feed.HTTPError, client.Update(context.Background(), nil).Result)
}

func TestTubeEmptyBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{Endpoint: server.URL, StopID: "940GZZLUKSX", Location: "Kings Cross"})
	require.Nil(t, err)

	require.Equal(t, feed.Success, client.Update(context.Background(), nil).Result)
	assert.True(t, client.Board().Empty())
	assert.Equal(t, "Kings Cross", client.Board().Location)
}

func TestTubeInvalidStop(t *testing.T) {
	_, err := NewClient(testFetcher(), Config{StopID: "bad id!"})
	assert.NotNil(t, err)
}
