package departures

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/feed"
	"github.com/travigo/departures-board/pkg/feeds/bus"
	"github.com/travigo/departures-board/pkg/feeds/rail"
	"github.com/travigo/departures-board/pkg/feeds/tube"
	"github.com/travigo/departures-board/pkg/scheduler"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Display.TimeZone = "UTC"
	cfg.Rail.CRS = "btn"
	cfg.Rail.Token = "token"
	cfg.Tube.StopID = "940GZZLUOXC"
	cfg.Bus.ATCOCode = "490008660N"
	cfg.Firmware.Repository = ""

	return cfg
}

func TestFactorySources(t *testing.T) {
	assert := assert.New(t)
	factory := NewFactory(config.NewStore("", testConfig()))

	source, err := factory.Source(scheduler.Rail)
	require.Nil(t, err)
	assert.IsType(&rail.Client{}, source)

	source, err = factory.Source(scheduler.Tube)
	require.Nil(t, err)
	assert.IsType(&tube.Client{}, source)

	source, err = factory.Source(scheduler.Bus)
	require.Nil(t, err)
	assert.IsType(&bus.Client{}, source)
}

func TestFactoryRejectsBadStation(t *testing.T) {
	cfg := testConfig()
	cfg.Rail.CRS = "BRIGHTON"

	_, err := NewFactory(config.NewStore("", cfg)).Source(scheduler.Rail)
	assert.NotNil(t, err)
}

func TestFactoryOptionalFeeds(t *testing.T) {
	assert := assert.New(t)
	factory := NewFactory(config.NewStore("", testConfig()))

	assert.Nil(factory.Headlines())
	assert.Nil(factory.Weather())
	assert.Nil(factory.Releases())

	cfg := testConfig()
	cfg.Headlines.URL = "ftp://example.com/feed"
	assert.Nil(NewFactory(config.NewStore("", cfg)).Headlines())

	cfg.Firmware.Repository = "gadec-uk/departures-board"
	assert.NotNil(NewFactory(config.NewStore("", cfg)).Releases())
}

func TestFactoryHeadlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "departures-test", r.UserAgent())
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><item><title>Lines reopen</title></item></channel></rss>`)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Feed.UserAgent = "departures-test"
	cfg.Headlines.URL = server.URL
	cfg.Headlines.Source = "News"

	headlines := NewFactory(config.NewStore("", cfg)).Headlines()
	require.NotNil(t, headlines)

	outcome := headlines.Update(context.Background(), nil)
	require.Equal(t, feed.Success, outcome.Result, outcome.Message)
	assert.Equal(t, "News: Lines reopen", headlines.Message())
}
