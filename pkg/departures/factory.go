// Package departures wires the feeds, scheduler and config server into the
// board's command line.
package departures

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/feed"
	"github.com/travigo/departures-board/pkg/feeds/bus"
	"github.com/travigo/departures-board/pkg/feeds/headlines"
	"github.com/travigo/departures-board/pkg/feeds/rail"
	"github.com/travigo/departures-board/pkg/feeds/release"
	"github.com/travigo/departures-board/pkg/feeds/tube"
	"github.com/travigo/departures-board/pkg/feeds/weather"
	"github.com/travigo/departures-board/pkg/scheduler"
)

// Factory builds feed clients from whatever the config store holds at the
// time of the call, so a reconfigure picks up new settings.
type Factory struct {
	store *config.Store
}

func NewFactory(store *config.Store) *Factory {
	return &Factory{store: store}
}

func fetcher(settings config.Feed) *feed.Client {
	fetchConfig := feed.DefaultConfig()
	fetchConfig.Insecure = settings.Insecure
	if settings.UserAgent != "" {
		fetchConfig.UserAgent = settings.UserAgent
	}

	return feed.NewClient(fetchConfig)
}

func (f *Factory) Source(mode scheduler.Mode) (scheduler.Source, error) {
	cfg := f.store.Get()

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	switch mode {
	case scheduler.Rail:
		return rail.NewClient(fetcher(cfg.Feed), rail.Config{
			Endpoint:   cfg.Rail.Endpoint,
			Token:      cfg.Rail.Token,
			CRS:        cfg.Rail.CRS,
			FilterCRS:  cfg.Rail.FilterCRS,
			TimeOffset: cfg.Rail.TimeOffset,
			Platforms:  cfg.Rail.Platforms,
			Expression: cfg.Rail.Filter,
		})
	case scheduler.Tube:
		return tube.NewClient(fetcher(cfg.Feed), tube.Config{
			Endpoint: cfg.Tube.Endpoint,
			AppKey:   cfg.Tube.AppKey,
			StopID:   cfg.Tube.StopID,
			Location: cfg.Tube.Location,
			TimeZone: location,
		})
	case scheduler.Bus:
		return bus.NewClient(fetcher(cfg.Feed), bus.Config{
			Endpoint:   cfg.Bus.Endpoint,
			ATCOCode:   cfg.Bus.ATCOCode,
			Lines:      cfg.Bus.Lines,
			Expression: cfg.Bus.Filter,
			Location:   cfg.Bus.Location,
			TimeZone:   location,
		})
	default:
		return nil, errors.Errorf("unknown mode %q", mode)
	}
}

// HeadlinesClient returns nil with no error when no feed URL is configured.
func (f *Factory) HeadlinesClient() (*headlines.Client, error) {
	cfg := f.store.Get()
	if cfg.Headlines.URL == "" {
		return nil, nil
	}

	return headlines.NewClient(fetcher(cfg.Feed), headlines.Config{
		URL:    cfg.Headlines.URL,
		Source: cfg.Headlines.Source,
	})
}

// WeatherClient returns nil with no error when no API key is configured.
func (f *Factory) WeatherClient() (*weather.Client, error) {
	cfg := f.store.Get()
	if cfg.Weather.APIKey == "" {
		return nil, nil
	}

	return weather.NewClient(fetcher(cfg.Feed), weather.Config{
		Endpoint:  cfg.Weather.Endpoint,
		APIKey:    cfg.Weather.APIKey,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
	})
}

// ReleaseClient returns nil with no error when firmware checks have no repository.
func (f *Factory) ReleaseClient() (*release.Client, error) {
	cfg := f.store.Get()
	if cfg.Firmware.Repository == "" {
		return nil, nil
	}

	return release.NewClient(fetcher(cfg.Feed), release.Config{
		Endpoint:   cfg.Firmware.Endpoint,
		Repository: cfg.Firmware.Repository,
		Token:      cfg.Firmware.Token,
	})
}

func (f *Factory) Headlines() scheduler.Feed {
	client, err := f.HeadlinesClient()
	if err != nil {
		log.Warn().Err(err).Msg("Headlines disabled")
		return nil
	}
	if client == nil {
		return nil
	}

	return client
}

func (f *Factory) Weather() scheduler.Feed {
	client, err := f.WeatherClient()
	if err != nil {
		log.Warn().Err(err).Msg("Weather disabled")
		return nil
	}
	if client == nil {
		return nil
	}

	return client
}

// Releases is the scheduler's view of ReleaseClient, nil when disabled.
func (f *Factory) Releases() scheduler.Releases {
	client, err := f.ReleaseClient()
	if err != nil {
		log.Warn().Err(err).Msg("Firmware checks disabled")
		return nil
	}
	if client == nil {
		return nil
	}

	return client
}
