package headlines

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/departures-board/pkg/feed"
)

func testFetcher() *feed.Client {
	config := feed.DefaultConfig()
	config.ConnectAttempts = 1
	config.ResponseTimeout = time.Second
	config.BodyTimeout = time.Second
	return feed.NewClient(config)
}

func rss(titles ...string) string {
	var items strings.Builder
	for _, title := range titles {
		fmt.Fprintf(&items, "<item><title>%s</title><link>https://example.com</link></item>\n", title)
	}

	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Example News</title>` + items.String() + `</channel></rss>`
}

func TestHeadlinesUpdate(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss("  First story  ", "<![CDATA[Second & story]]>", "Third story"))
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{URL: server.URL, Source: "News"})
	require.Nil(t, err)

	outcome := client.Update(context.Background(), nil)
	require.Equal(t, feed.Success, outcome.Result, outcome.Message)

	assert.Equal([]string{"First story", "Second & story", "Third story"}, client.Set().Titles.Items)
	assert.Equal("News: First story • Second & story • Third story", client.Message())
	assert.Equal(feed.NoChange, client.Update(context.Background(), nil).Result)
}

func TestHeadlinesCap(t *testing.T) {
	assert := assert.New(t)

	long := strings.Repeat("x", TitleCapacity+20)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss("1", "2", "3", "4", long, "6", "7"))
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{URL: server.URL})
	require.Nil(t, err)

	require.Equal(t, feed.Success, client.Update(context.Background(), nil).Result)

	titles := client.Set().Titles.Items
	assert.Len(titles, MaxTitles)
	assert.Equal("4", titles[3])
	assert.Len(titles[4], TitleCapacity-1)
	assert.Equal("1 • 2", client.Set().Message("")[:len("1 • 2")])
}

func TestHeadlinesFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/feed.xml", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss("Moved story"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{URL: server.URL + "/old"})
	require.Nil(t, err)

	outcome := client.Update(context.Background(), nil)

	assert.Equal(t, feed.Success, outcome.Result)
	assert.Equal(t, 1, outcome.Redirects)
	assert.Equal(t, []string{"Moved story"}, client.Set().Titles.Items)
}

func TestHeadlinesMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<rss><channel><item><title>Cut off`)
	}))
	defer server.Close()

	client, err := NewClient(testFetcher(), Config{URL: server.URL})
	require.Nil(t, err)

	assert.Equal(t, feed.DataError, client.Update(context.Background(), nil).Result)
	assert.False(t, client.Loaded())
	assert.Equal(t, "", client.Message())
}

func TestHeadlinesInvalidURL(t *testing.T) {
	_, err := NewClient(testFetcher(), Config{URL: "ftp://example.com/feed"})
	assert.NotNil(t, err)
}
