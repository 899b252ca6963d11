// Package scheduler runs the departures board: it decides when each feed is
// fetched, owns the active board and drives every animation frame.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/feed"
	"github.com/travigo/departures-board/pkg/render"
	"github.com/travigo/departures-board/pkg/status"
	"github.com/travigo/departures-board/pkg/updater"
)

const (
	FailureBackoff = 30 * time.Second

	WeatherInterval   = 20 * time.Minute
	WeatherRetry      = 30 * time.Second
	HeadlinesInterval = 10 * time.Minute
	HeadlinesRetry    = 5 * time.Minute

	clockCheckInterval  = 250 * time.Millisecond
	screensaverInterval = 8 * time.Second
	sleepingFrame       = 100 * time.Millisecond
	eventQueueLength    = 16
)

const (
	updateIcon         = "*"
	startupTitle       = "Departures Board"
	noDataTitleRail    = "No departure data available"
	noDataTitleTube    = "No arrivals data available"
	noDataTitleBus     = "No bus data available"
	noDataRetryMessage = "Retrying shortly"
	unauthorizedTitle  = "Access denied"
	unauthorizedDetail = "The feed rejected the configured key."
	configurationTitle = "Configuration error"
	fatalActionMessage = "Update the settings to continue."
)

// Publisher receives a diagnostics snapshot whenever the board state changes.
type Publisher interface {
	Publish(ctx context.Context, snapshot status.Snapshot) error
}

type Options struct {
	Clock     Clock
	Screen    render.Renderer
	Factory   Factory
	Releases  Releases
	Flasher   updater.Flasher
	Publisher Publisher
	Settings  Settings
}

type Scheduler struct {
	clock     Clock
	screen    render.Renderer
	factory   Factory
	releases  Releases
	flasher   updater.Flasher
	publisher Publisher
	settings  Settings
	events    chan Event

	started bool
	mode    Mode
	epoch   int
	source  Source

	headlines   Feed
	weather     Feed
	headline    string
	weatherLine string

	board    board.Board
	messages []string

	outcome     feed.Outcome
	fetched     bool
	successes   int
	failures    int
	lastSuccess time.Time
	lastFailure time.Time
	loaded      bool
	firstDraw   bool
	fatal       bool
	fatalTitle  string
	fatalDetail string

	nextRefresh   time.Time
	nextWeather   time.Time
	nextHeadlines time.Time

	sleeping        bool
	forcedSleep     bool
	nextScreensaver time.Time

	firmware          status.Firmware
	firmwareRequested bool
	firmwareDay       int
	nextFirmwareCheck time.Time

	shownClock     string
	nextClockCheck time.Time
	frameStarted   time.Time
	dirty          render.Area
	hasDirty       bool
	fullRefresh    bool

	line2        Animation
	line3        Animation
	primary      Animation
	viaShown     bool
	nextVia      time.Time
	busLineWidth int
}

func New(options Options) *Scheduler {
	clock := options.Clock
	if clock == nil {
		clock = SystemClock()
	}

	return &Scheduler{
		clock:     clock,
		screen:    options.Screen,
		factory:   options.Factory,
		releases:  options.Releases,
		flasher:   options.Flasher,
		publisher: options.Publisher,
		settings:  options.Settings,
		events:    make(chan Event, eventQueueLength),
		board:     board.New(),
		firmware:  status.Firmware{Running: options.Settings.Version},
	}
}

// Post queues an event for the scheduler goroutine. It returns false when the queue is full.
func (s *Scheduler) Post(event Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("mode", s.settings.Mode.String()).Msg("Starting departures board")

	for ctx.Err() == nil {
		s.Tick(ctx)
	}

	if s.source != nil {
		s.source.Close()
		s.source = nil
	}

	return nil
}

// Tick runs one frame of the board.
func (s *Scheduler) Tick(ctx context.Context) {
	s.frameStarted = s.clock.Now()

	if !s.started {
		s.started = true
		s.enterMode(ctx)
	}

	s.serviceEvents(ctx)
	s.checkFirmware(ctx)

	if s.checkSleep(ctx) {
		s.pace(sleepingFrame)
		return
	}

	if !s.fatal {
		s.refresh(ctx)
		s.animate()
		s.drawClock()
	}

	s.pace(s.mode.FrameBudget())
}

func (s *Scheduler) serviceEvents(ctx context.Context) {
	for {
		select {
		case event := <-s.events:
			s.handle(ctx, event)
		default:
			return
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, event Event) {
	log.Info().Str("event", event.Kind.String()).Msg("Handling board event")

	switch event.Kind {
	case EventSwitchMode:
		if event.Mode == s.mode && !s.fatal {
			return
		}
		s.settings.Mode = event.Mode
		s.enterMode(ctx)
	case EventReconfigure:
		if event.Settings != nil {
			s.settings = *event.Settings
		}
		s.releases = s.factory.Releases()
		s.firmware.Running = s.settings.Version
		s.enterMode(ctx)
	case EventSleep:
		s.forcedSleep = event.On
	case EventBrightness:
		s.settings.Brightness = event.Level
		if !s.sleeping {
			s.screen.SetBrightness(event.Level)
		}
	case EventFirmwareCheck:
		s.firmwareRequested = true
	}

	s.publish(ctx)
}

// enterMode replaces every client and restarts the board from a blank screen.
func (s *Scheduler) enterMode(ctx context.Context) {
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}

	s.epoch++
	s.mode = s.settings.Mode
	s.nextRefresh = time.Time{}
	s.nextWeather = time.Time{}
	s.nextHeadlines = time.Time{}
	s.loaded = false
	s.firstDraw = true
	s.fatal = false
	s.outcome = feed.Outcome{}
	s.fetched = false
	s.board = board.New()
	s.headline = ""
	s.weatherLine = ""
	s.messages = nil
	s.resetAnimations()

	source, err := s.factory.Source(s.mode)
	if err != nil {
		log.Error().Err(err).Str("mode", s.mode.String()).Msg("Failed to create board source")

		s.fatal = true
		s.fetched = true
		s.outcome = feed.Outcome{Result: feed.DataError, Message: err.Error()}
		s.drawFatal(configurationTitle, err.Error())
		s.publish(ctx)
		return
	}

	s.source = source
	s.headlines = s.factory.Headlines()
	s.weather = s.factory.Weather()

	s.screen.ClearAll()
	s.screen.SetBrightness(s.settings.Brightness)
	s.screen.CentreText(15, startupTitle)
	s.screen.CentreText(28, "Loading "+s.mode.String()+" departures")
	s.fullRefresh = true

	log.Info().Str("mode", s.mode.String()).Msg("Board mode entered")

	s.publish(ctx)
}

func (s *Scheduler) resetAnimations() {
	s.line2 = Animation{Previous: -1}
	s.line3 = Animation{Previous: -1}
	s.primary = Animation{}
	s.viaShown = false
	s.nextVia = time.Time{}
	s.shownClock = ""
	s.nextClockCheck = time.Time{}
}

func (s *Scheduler) animating() bool {
	return s.line2.Moving() || s.line3.Moving() || s.primary.Moving()
}

func (s *Scheduler) refresh(ctx context.Context) {
	if s.animating() || s.source == nil {
		return
	}

	now := s.clock.Now()

	switch {
	case !now.Before(s.nextRefresh):
		s.updateBoard(ctx)
	case s.weather != nil && s.mode != Tube && s.loaded && s.outcome.Result.Succeeded() && !now.Before(s.nextWeather):
		s.updateWeather(ctx)
	case s.headlines != nil && s.mode != Bus && !now.Before(s.nextHeadlines):
		s.updateHeadlines(ctx)
	}
}

// progress keeps events and the clock serviced while a body is streaming.
func (s *Scheduler) progress(ctx context.Context) func(int64) {
	return func(int64) {
		s.serviceEvents(ctx)
		s.drawClock()
		s.commit()
	}
}

func (s *Scheduler) updateBoard(ctx context.Context) {
	epoch := s.epoch
	source := s.source

	s.showUpdateIcon(!s.firstDraw)

	outcome := source.Update(ctx, s.progress(ctx))
	if epoch != s.epoch {
		log.Debug().
			Str("mode", s.mode.String()).
			Str("result", outcome.Result.String()).
			Msg("Discarding fetch for a board that was replaced")
		return
	}

	s.showUpdateIcon(false)

	now := s.clock.Now()
	s.outcome = outcome
	s.fetched = true
	s.nextRefresh = now.Add(s.mode.RefreshInterval(s.settings.FastRefresh))

	switch {
	case outcome.Result.Succeeded():
		s.successes++
		s.lastSuccess = now

		first := s.firstDraw
		s.loaded = true

		if outcome.Result == feed.Success || first {
			s.board = source.Board()
			s.drawBoard(true)
		}
	case outcome.Result == feed.Unauthorized:
		s.failures++
		s.lastFailure = now
		s.fatal = true

		log.Error().Str("mode", s.mode.String()).Str("message", outcome.Message).Msg("Feed rejected credentials, fetching stopped")
		s.drawFatal(unauthorizedTitle, unauthorizedDetail)
	default:
		s.failures++
		s.lastFailure = now
		s.nextRefresh = now.Add(FailureBackoff)

		log.Warn().
			Str("mode", s.mode.String()).
			Str("result", outcome.Result.String()).
			Str("message", outcome.Message).
			Bool("transient", outcome.Result.Transient()).
			Msg("Board update failed")

		if !s.loaded {
			s.drawNoData()
		} else if outcome.Result == feed.DataError {
			s.drawBoard(false)
		}
	}

	s.publish(ctx)
}

func (s *Scheduler) updateWeather(ctx context.Context) {
	epoch := s.epoch
	outcome := s.weather.Update(ctx, s.progress(ctx))
	if epoch != s.epoch {
		return
	}

	now := s.clock.Now()
	switch {
	case outcome.Result.Succeeded():
		s.weatherLine = s.weather.Message()
		s.nextWeather = now.Add(WeatherInterval)
	case outcome.Result == feed.Unauthorized:
		log.Error().Str("message", outcome.Message).Msg("Weather feed rejected the API key")
		s.nextWeather = now.Add(WeatherInterval)
	default:
		log.Warn().Str("result", outcome.Result.String()).Str("message", outcome.Message).Msg("Weather update failed")
		s.nextWeather = now.Add(WeatherRetry)
	}

	s.composeMessages()
	s.publish(ctx)
}

func (s *Scheduler) updateHeadlines(ctx context.Context) {
	epoch := s.epoch
	outcome := s.headlines.Update(ctx, s.progress(ctx))
	if epoch != s.epoch {
		return
	}

	now := s.clock.Now()
	if outcome.Result.Succeeded() {
		s.headline = s.headlines.Message()
		s.nextHeadlines = now.Add(HeadlinesInterval)
	} else {
		log.Warn().Str("result", outcome.Result.String()).Str("message", outcome.Message).Msg("Headlines update failed")
		s.headline = ""
		s.nextHeadlines = now.Add(HeadlinesRetry)
	}

	s.composeMessages()
	s.publish(ctx)
}

func (s *Scheduler) drawBoard(changed bool) {
	switch s.mode {
	case Rail:
		s.drawRailBoard()
	default:
		s.drawMetroBoard(changed)
	}
}

// composeMessages builds the rotating message list from the board plus the
// supplementary feeds. The source's own board is never modified.
func (s *Scheduler) composeMessages() {
	switch s.mode {
	case Rail:
		s.messages = s.railMessages()
	default:
		s.messages = s.metroMessages()
	}
}

func (s *Scheduler) animate() {
	if !s.loaded || s.firstDraw {
		return
	}

	now := s.clock.Now()

	switch s.mode {
	case Rail:
		s.animateVia(now)
		s.animateRailMessages(now)
		s.animateRailServices(now)
	default:
		s.animateMetroPrimary()
		s.animateMetroRotation(now)
	}
}

func (s *Scheduler) clockY() int {
	if s.mode == Rail {
		return railClock
	}

	return metroClock
}

func (s *Scheduler) drawClock() {
	if s.firstDraw || s.fatal || s.sleeping {
		return
	}

	now := s.clock.Now()
	if now.Before(s.nextClockCheck) {
		return
	}
	s.nextClockCheck = now.Add(clockCheckInterval)

	text := now.In(s.settings.location()).Format("15:04:05")
	if text == s.shownClock {
		return
	}
	s.shownClock = text

	y := s.clockY()
	area := render.Area{X: 40, Y: y, W: render.Width - 80, H: render.Height - y}
	s.screen.Blank(area)
	s.screen.CentreText(y, text)
	s.markDirty(area)
}

func (s *Scheduler) showUpdateIcon(on bool) {
	y := s.clockY()
	area := render.Area{X: 0, Y: y, W: 8, H: render.Height - y}
	s.screen.Blank(area)
	if on {
		s.screen.DrawText(0, y, updateIcon)
	}
	s.screen.Commit(area)
}

func (s *Scheduler) drawNoData() {
	title := noDataTitleRail
	switch s.mode {
	case Tube:
		title = noDataTitleTube
	case Bus:
		title = noDataTitleBus
	}

	s.screen.ClearAll()
	s.screen.CentreText(15, title)
	s.screen.CentreText(28, fitText(s.screen, s.outcome.String(), render.Width))
	s.screen.CentreText(41, noDataRetryMessage)
	s.fullRefresh = true
}

// drawFatal shows the frozen screen. It is kept so the screen can be restored
// after the sleep window or a firmware install.
func (s *Scheduler) drawFatal(title string, detail string) {
	s.fatalTitle = title
	s.fatalDetail = detail

	s.screen.ClearAll()
	s.screen.SetBrightness(s.settings.Brightness)
	s.screen.CentreText(15, title)
	s.screen.CentreText(28, fitText(s.screen, detail, render.Width))
	s.screen.CentreText(41, fatalActionMessage)
	s.fullRefresh = true
}

func (s *Scheduler) markDirty(area render.Area) {
	if !s.hasDirty {
		s.dirty = area
		s.hasDirty = true
		return
	}

	x1 := min(s.dirty.X, area.X)
	y1 := min(s.dirty.Y, area.Y)
	x2 := max(s.dirty.X+s.dirty.W, area.X+area.W)
	y2 := max(s.dirty.Y+s.dirty.H, area.Y+area.H)
	s.dirty = render.Area{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

func (s *Scheduler) commit() {
	switch {
	case s.fullRefresh:
		s.screen.Commit(render.FullScreen)
	case s.hasDirty:
		s.screen.Commit(s.dirty)
	default:
		return
	}

	s.fullRefresh = false
	s.hasDirty = false
}

// pace sleeps out the rest of the frame and then pushes the frame to the display.
func (s *Scheduler) pace(budget time.Duration) {
	if remaining := budget - s.clock.Now().Sub(s.frameStarted); remaining > 0 {
		s.clock.Sleep(remaining)
	}

	s.commit()
}

func (s *Scheduler) publish(ctx context.Context) {
	if s.publisher == nil {
		return
	}

	result := ""
	if s.fetched {
		result = s.outcome.Result.String()
	}

	snapshot := status.Snapshot{
		Mode:        s.mode.String(),
		Result:      result,
		Message:     s.outcome.Message,
		Successes:   s.successes,
		Failures:    s.failures,
		LastSuccess: s.lastSuccess,
		LastFailure: s.lastFailure,
		Fatal:       s.fatal,
		Sleeping:    s.sleeping,
		Brightness:  s.settings.Brightness,
		Weather:     s.weatherLine,
		Headlines:   s.headline,
		Board:       s.board.Clone(),
		Firmware:    s.firmware,
		UpdatedAt:   s.clock.Now(),
	}

	if err := s.publisher.Publish(ctx, snapshot); err != nil {
		log.Error().Err(err).Msg("Failed to publish board status")
	}
}
