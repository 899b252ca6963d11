package feed

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSchema struct {
	JSONContext
	names []string
	limit int
}

func (s *countingSchema) Reset() {
	s.JSONContext.Reset()
	s.names = nil
}

func (s *countingSchema) Complete() bool {
	return s.limit > 0 && len(s.names) >= s.limit
}

func (s *countingSchema) HandleJSON(token JSONToken) {
	s.Track(token)
	if token.Kind == Value && s.Key == "name" {
		s.names = append(s.names, token.Text)
	}
}

func testConfig() Config {
	config := DefaultConfig()
	config.ConnectAttempts = 2
	config.ConnectDelay = 10 * time.Millisecond
	config.ResponseTimeout = 200 * time.Millisecond
	config.BodyTimeout = 300 * time.Millisecond
	return config
}

func TestFetchSuccess(t *testing.T) {
	assert := assert.New(t)

	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"items":[{"name":"a"},{"name":"b"}]}`)
	}))
	defer server.Close()

	var progress int64
	schema := &countingSchema{}
	client := NewClient(testConfig())

	outcome := client.Fetch(context.Background(), Request{
		URL:      server.URL,
		Header:   http.Header{"User-Agent": []string{"curl/7.54.1"}},
		Progress: func(total int64) { progress = total },
	}, JSON(schema))

	assert.Equal(Success, outcome.Result)
	assert.Equal(http.StatusOK, outcome.Status)
	assert.Equal([]string{"a", "b"}, schema.names)
	assert.Equal(int64(37), outcome.Bytes)
	assert.Equal(outcome.Bytes, progress)
	assert.Equal(Done, outcome.Phase)
	assert.Equal("curl/7.54.1", agent)
}

func TestFetchIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"a"}]}`)
	}))
	defer server.Close()

	schema := &countingSchema{}
	client := NewClient(testConfig())

	for i := 0; i < 3; i++ {
		outcome := client.Fetch(context.Background(), Request{URL: server.URL}, JSON(schema))
		assert.Equal(t, Success, outcome.Result)
		assert.Equal(t, []string{"a"}, schema.names)
	}
}

func TestFetchEarlyCutoff(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"a"},{"name":"b"}`)
		w.(http.Flusher).Flush()
		// Never finishes the document; the schema must stop reading first
		<-r.Context().Done()
	}))
	defer server.Close()

	schema := &countingSchema{limit: 2}
	client := NewClient(testConfig())

	outcome := client.Fetch(context.Background(), Request{URL: server.URL}, JSON(schema))

	assert.Equal(Success, outcome.Result)
	assert.Equal([]string{"a", "b"}, schema.names)
	assert.Less(outcome.Elapsed, 250*time.Millisecond)
}

func TestFetchRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		var hop int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/hop/"), "%d", &hop)
		if hop == 0 {
			fmt.Fprint(w, `{"name":"done"}`)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", hop-1), http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(testConfig())

	t.Run("WithinLimit", func(t *testing.T) {
		schema := &countingSchema{}
		outcome := client.Fetch(context.Background(), Request{URL: server.URL + "/hop/5"}, JSON(schema))

		assert.Equal(t, Success, outcome.Result)
		assert.Equal(t, 5, outcome.Redirects)
		assert.Equal(t, []string{"done"}, schema.names)
	})

	t.Run("BeyondLimit", func(t *testing.T) {
		outcome := client.Fetch(context.Background(), Request{URL: server.URL + "/hop/6"}, JSON(&countingSchema{}))

		assert.Equal(t, HTTPError, outcome.Result)
		assert.Equal(t, 5, outcome.Redirects)
	})
}

func TestFetchRedirectWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer server.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

	assert.Equal(t, HTTPError, outcome.Result)
	assert.Equal(t, http.StatusMovedPermanently, outcome.Status)
}

func TestFetchStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		result Result
	}{
		{http.StatusUnauthorized, Unauthorized},
		{http.StatusForbidden, Unauthorized},
		{http.StatusInternalServerError, HTTPError},
		{http.StatusNotFound, HTTPError},
	}

	for _, test := range tests {
		t.Run(http.StatusText(test.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
			}))
			defer server.Close()

			outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

			assert.Equal(t, test.result, outcome.Result)
			assert.Equal(t, test.status, outcome.Status)
		})
	}
}

func TestFetchNoResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

	assert.Equal(t, NoResponse, outcome.Result)
	assert.Less(t, outcome.Elapsed, time.Second)
}

func TestFetchBodyTimeout(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"a"}`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	config := testConfig()
	outcome := NewClient(config).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

	assert.Equal(Timeout, outcome.Result)
	assert.Equal(int64(22), outcome.Bytes)
	assert.GreaterOrEqual(outcome.Elapsed, config.BodyTimeout)
	assert.Less(outcome.Elapsed, config.BodyTimeout+500*time.Millisecond)
}

func TestFetchDataError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"a"}}`)
	}))
	defer server.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

	assert.Equal(t, DataError, outcome.Result)
}

func TestFetchCutOffBodyIsDataError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"name":"a"},{"name":`)
	}))
	defer server.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: server.URL}, JSON(&countingSchema{}))

	assert.Equal(t, DataError, outcome.Result)
	assert.Contains(t, outcome.Message, "json lexer")
}

func TestFetchConnectionTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	address := listener.Addr().String()
	listener.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{URL: "http://" + address}, JSON(&countingSchema{}))

	assert.Equal(t, ConnectionTimeout, outcome.Result)
	assert.Equal(t, Connecting, outcome.Phase)
	assert.Contains(t, outcome.Message, "2 attempts")
}

func TestFetchPostsBody(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = r.Method + " " + string(body)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	outcome := NewClient(testConfig()).Fetch(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   []byte("<soap/>"),
	}, JSON(&countingSchema{}))

	assert.Equal(t, Success, outcome.Result)
	assert.Equal(t, "POST <soap/>", received)
}

func TestResultClassification(t *testing.T) {
	assert := assert.New(t)

	assert.True(Success.Succeeded())
	assert.True(NoChange.Succeeded())
	assert.False(DataError.Succeeded())
	assert.True(Timeout.Transient())
	assert.True(ConnectionTimeout.Transient())
	assert.False(Unauthorized.Transient())
	assert.Equal("SUCCESS (NO CHANGES)", NoChange.String())
	assert.Equal(7, int(NoChange))
}
