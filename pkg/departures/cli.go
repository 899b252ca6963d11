package departures

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/configserver"
	"github.com/travigo/departures-board/pkg/feed"
	"github.com/travigo/departures-board/pkg/redis_client"
	"github.com/travigo/departures-board/pkg/render"
	"github.com/travigo/departures-board/pkg/scheduler"
	"github.com/travigo/departures-board/pkg/status"
	"github.com/travigo/departures-board/pkg/updater"
	"github.com/urfave/cli/v2"
)

// Version is the running firmware version, set at build time.
var Version = "1.0.0"

var settingsFlag = &cli.StringFlag{
	Name:    "settings",
	Usage:   "Path to the settings file",
	Value:   "departures.yaml",
	EnvVars: []string{"DEPARTURES_SETTINGS"},
}

func RegisterCLI() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "run",
			Usage: "Run the departures board and its config server",
			Flags: []cli.Flag{
				settingsFlag,
				&cli.StringFlag{
					Name:  "listen",
					Usage: "Listen address for the config server, overriding the settings file",
				},
			},
			Action: run,
		},
		{
			Name:      "fetch",
			Usage:     "Fetch one feed and print what was parsed",
			ArgsUsage: "rail|tube|bus|headlines|weather|release",
			Flags:     []cli.Flag{settingsFlag},
			Action:    fetch,
		},
		{
			Name:  "version",
			Usage: "Print the running version",
			Action: func(c *cli.Context) error {
				fmt.Println(Version)
				return nil
			},
		},
	}
}

func statusStore(ctx context.Context, cfg config.Status) (*status.Store, error) {
	if cfg.RedisAddress == "" {
		return status.NewMemory(), nil
	}

	client, err := redis_client.Connect(ctx, redis_client.Options{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		Database: cfg.RedisDatabase,
	})
	if err != nil {
		return nil, err
	}

	return status.NewRedis(client), nil
}

func run(c *cli.Context) error {
	path := c.String("settings")

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	settings, err := cfg.Settings(Version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	statuses, err := statusStore(ctx, cfg.Status)
	if err != nil {
		return err
	}

	store := config.NewStore(path, cfg)
	factory := NewFactory(store)

	board := scheduler.New(scheduler.Options{
		Screen:    render.NewPanel(),
		Factory:   factory,
		Releases:  factory.Releases(),
		Flasher:   updater.LogFlasher{},
		Publisher: statuses,
		Settings:  settings,
	})

	server := configserver.New(configserver.Options{
		Store:      store,
		Status:     statuses,
		Controller: board,
		Version:    Version,
	})

	listen := cfg.Server.Listen
	if c.String("listen") != "" {
		listen = c.String("listen")
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := board.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Scheduler stopped")
		}
		stop()
	})
	wg.Go(func() {
		if err := server.Listen(listen); err != nil {
			log.Error().Err(err).Msg("Config server stopped")
			stop()
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Config server shutdown")
		}
	})
	wg.Wait()

	log.Info().Msg("Departures board stopped")

	return nil
}

func fetch(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("feed name required: "+c.Command.ArgsUsage, 1)
	}

	cfg, err := config.Load(c.String("settings"))
	if err != nil {
		return err
	}
	factory := NewFactory(config.NewStore(c.String("settings"), cfg))

	ctx := c.Context
	var outcome feed.Outcome
	var parsed any

	switch name {
	case "headlines":
		client, err := factory.HeadlinesClient()
		if err != nil {
			return err
		}
		if client == nil {
			return cli.Exit("headlines feed not configured", 1)
		}
		outcome = client.Update(ctx, nil)
		parsed = client.Set()
	case "weather":
		client, err := factory.WeatherClient()
		if err != nil {
			return err
		}
		if client == nil {
			return cli.Exit("weather feed not configured", 1)
		}
		outcome = client.Update(ctx, nil)
		parsed = client.Conditions()
	case "release":
		client, err := factory.ReleaseClient()
		if err != nil {
			return err
		}
		if client == nil {
			return cli.Exit("firmware repository not configured", 1)
		}
		outcome = client.Update(ctx, nil)
		parsed = client.Descriptor()
	default:
		mode, err := scheduler.ParseMode(name)
		if err != nil {
			return err
		}
		source, err := factory.Source(mode)
		if err != nil {
			return err
		}
		defer source.Close()

		outcome = source.Update(ctx, nil)
		parsed = source.Board()
	}

	log.Info().
		Str("result", outcome.Result.String()).
		Int("status", outcome.Status).
		Int64("bytes", outcome.Bytes).
		Dur("elapsed", outcome.Elapsed).
		Msg("Feed fetched")

	if !outcome.Result.Succeeded() {
		return cli.Exit(outcome.String(), 1)
	}

	pretty.Println(parsed)

	return nil
}
