package feed

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// Phase is the stage a round trip has reached.
type Phase int

const (
	Connecting Phase = iota
	AwaitingStatus
	ReadingHeaders
	StreamingBody
	Done
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case AwaitingStatus:
		return "awaiting status"
	case ReadingHeaders:
		return "reading headers"
	case StreamingBody:
		return "streaming body"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

type Config struct {
	ConnectAttempts int
	ConnectDelay    time.Duration
	ResponseTimeout time.Duration
	BodyTimeout     time.Duration
	MaxRedirects    int
	Insecure        bool
	UserAgent       string
	ReadChunk       int
}

func DefaultConfig() Config {
	return Config{
		ConnectAttempts: 10,
		ConnectDelay:    200 * time.Millisecond,
		ResponseTimeout: 5 * time.Second,
		BodyTimeout:     12 * time.Second,
		MaxRedirects:    5,
		Insecure:        true,
		UserAgent:       "departures-board",
		ReadChunk:       512,
	}
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// AcceptStatus lists error statuses whose body is still parsed, e.g. SOAP faults.
	AcceptStatus []int

	// Progress is called with the running body byte count.
	Progress func(total int64)
}

// Outcome describes how a round trip ended.
type Outcome struct {
	Result    Result
	Message   string
	Status    int
	Bytes     int64
	Redirects int
	Elapsed   time.Duration
	Phase     Phase
}

func (o Outcome) String() string {
	if o.Message == "" {
		return o.Result.String()
	}
	return fmt.Sprintf("%s: %s", o.Result, o.Message)
}

// ConnectError is returned by the dialer once every connection attempt failed.
type ConnectError struct {
	Address  string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s failed after %d attempts: %s", e.Address, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.ConnectAttempts < 1 {
		config.ConnectAttempts = defaults.ConnectAttempts
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = defaults.ResponseTimeout
	}
	if config.BodyTimeout <= 0 {
		config.BodyTimeout = defaults.BodyTimeout
	}
	if config.MaxRedirects < 0 {
		config.MaxRedirects = 0
	}
	if config.ReadChunk <= 0 {
		config.ReadChunk = defaults.ReadChunk
	}

	client := &Client{config: config}

	transport := &http.Transport{
		DialContext:         client.dial,
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: config.ResponseTimeout,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: config.Insecure}, //nolint:gosec
	}

	client.http = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return client
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.config.ResponseTimeout}

	var conn net.Conn
	attempts := 0

	operation := func() error {
		attempts++

		var err error
		conn, err = dialer.DialContext(ctx, network, address)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.config.ConnectDelay), uint64(c.config.ConnectAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &ConnectError{Address: address, Attempts: attempts, Err: err}
	}

	return conn, nil
}

// Fetch performs one request, following redirects, and streams the body of the
// final response through parser. The parser is reset before any body is fed to it.
func (c *Client) Fetch(ctx context.Context, request Request, parser Parser) Outcome {
	start := time.Now()
	outcome := Outcome{Result: HTTPError}

	target := request.URL

	for {
		attempt := c.roundTrip(ctx, target, request, parser, &outcome)

		if attempt.redirect == "" {
			break
		}

		if outcome.Redirects >= c.config.MaxRedirects {
			outcome.Result = HTTPError
			outcome.Message = fmt.Sprintf("too many redirects (%d)", outcome.Redirects+1)
			break
		}

		next, err := resolveLocation(target, attempt.redirect)
		if err != nil {
			outcome.Result = HTTPError
			outcome.Message = err.Error()
			break
		}

		outcome.Redirects++
		target = next
	}

	outcome.Phase = Done
	outcome.Elapsed = time.Since(start)

	log.Debug().
		Str("url", request.URL).
		Str("result", outcome.Result.String()).
		Str("message", outcome.Message).
		Int("status", outcome.Status).
		Int64("bytes", outcome.Bytes).
		Int("redirects", outcome.Redirects).
		Dur("elapsed", outcome.Elapsed).
		Msg("Feed fetch finished")

	return outcome
}

type attemptResult struct {
	redirect string
}

// watchdog cancels a round trip when one of its deadlines passes and remembers
// which one fired.
type watchdog struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	response *time.Timer
	body     *time.Timer

	noResponse atomic.Bool
	timedOut   atomic.Bool
}

func (w *watchdog) startResponse(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.response != nil {
		return
	}
	w.response = time.AfterFunc(d, func() {
		w.noResponse.Store(true)
		w.cancel()
	})
}

func (w *watchdog) stopResponse() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.response != nil {
		w.response.Stop()
	}
}

func (w *watchdog) startBody(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.body = time.AfterFunc(d, func() {
		w.timedOut.Store(true)
		w.cancel()
	})
}

func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.response != nil {
		w.response.Stop()
	}
	if w.body != nil {
		w.body.Stop()
	}
}

func (c *Client) roundTrip(parent context.Context, target string, request Request, parser Parser, outcome *Outcome) attemptResult {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	guard := &watchdog{cancel: cancel}
	defer guard.stop()

	outcome.Phase = Connecting

	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) {
			guard.startResponse(c.config.ResponseTimeout)
		},
		GotFirstResponseByte: func() {
			guard.stopResponse()
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if request.Body != nil {
		body = bytes.NewReader(request.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		outcome.Result = HTTPError
		outcome.Message = err.Error()
		return attemptResult{}
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, values := range request.Header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	outcome.Phase = AwaitingStatus

	resp, err := c.http.Do(req)
	if err != nil {
		var connectErr *ConnectError

		switch {
		case errors.As(err, &connectErr):
			outcome.Result = ConnectionTimeout
			outcome.Phase = Connecting
		case guard.noResponse.Load():
			outcome.Result = NoResponse
		case parent.Err() != nil:
			outcome.Result = Timeout
		default:
			outcome.Result = NoResponse
		}
		outcome.Message = err.Error()

		return attemptResult{}
	}
	defer resp.Body.Close()

	outcome.Phase = ReadingHeaders
	outcome.Status = resp.StatusCode

	if slices.Contains(request.AcceptStatus, resp.StatusCode) {
		return c.stream(parent, resp, request, parser, guard, outcome)
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location := resp.Header.Get("Location")
		if location == "" {
			outcome.Result = HTTPError
			outcome.Message = "redirect without location"
			return attemptResult{}
		}
		return attemptResult{redirect: location}
	case http.StatusUnauthorized, http.StatusForbidden:
		outcome.Result = Unauthorized
		outcome.Message = resp.Status
		return attemptResult{}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome.Result = HTTPError
		outcome.Message = resp.Status
		return attemptResult{}
	}

	return c.stream(parent, resp, request, parser, guard, outcome)
}

func (c *Client) stream(parent context.Context, resp *http.Response, request Request, parser Parser, guard *watchdog, outcome *Outcome) attemptResult {
	outcome.Phase = StreamingBody
	guard.startBody(c.config.BodyTimeout)

	reader := &meteredReader{
		r:        resp.Body,
		chunk:    c.config.ReadChunk,
		progress: request.Progress,
	}

	parser.Reset()
	err := parser.Parse(reader)
	outcome.Bytes = reader.total

	switch {
	case guard.timedOut.Load():
		outcome.Result = Timeout
		outcome.Message = fmt.Sprintf("body deadline passed after %d bytes", reader.total)
	case parent.Err() != nil:
		outcome.Result = Timeout
		outcome.Message = parent.Err().Error()
	case err != nil:
		outcome.Result = DataError
		outcome.Message = err.Error()
	default:
		outcome.Result = Success
		outcome.Message = ""
	}

	return attemptResult{}
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", errors.Wrap(err, "redirect base")
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", errors.Wrap(err, "redirect location")
	}

	return base.ResolveReference(ref).String(), nil
}
