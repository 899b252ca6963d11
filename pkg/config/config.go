// Package config loads the board settings from a YAML file with environment
// overrides and turns them into scheduler settings.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/scheduler"
	"github.com/travigo/departures-board/pkg/util"
	"gopkg.in/yaml.v3"
)

// EnvironmentPrefix is stripped from the variables read by Load.
const EnvironmentPrefix = "DEPARTURES_"

type Rail struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint,omitempty"`
	Token        string `yaml:"token" json:"token,omitempty"`
	CRS          string `yaml:"crs" json:"crs,omitempty"`
	FilterCRS    string `yaml:"filter_crs" json:"filter_crs,omitempty"`
	TimeOffset   int    `yaml:"time_offset" json:"time_offset,omitempty"`
	Platforms    string `yaml:"platforms" json:"platforms,omitempty"`
	Filter       string `yaml:"filter" json:"filter,omitempty"`
	FastRefresh  bool   `yaml:"fast_refresh" json:"fast_refresh,omitempty"`
	HidePlatform bool   `yaml:"hide_platform" json:"hide_platform,omitempty"`
}

type Tube struct {
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	AppKey   string `yaml:"app_key" json:"app_key,omitempty"`
	StopID   string `yaml:"stop_id" json:"stop_id,omitempty"`
	Location string `yaml:"location" json:"location,omitempty"`
}

type Bus struct {
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	ATCOCode string `yaml:"atco_code" json:"atco_code,omitempty"`
	Lines    string `yaml:"lines" json:"lines,omitempty"`
	Filter   string `yaml:"filter" json:"filter,omitempty"`
	Location string `yaml:"location" json:"location,omitempty"`
}

type Headlines struct {
	URL    string `yaml:"url" json:"url,omitempty"`
	Source string `yaml:"source" json:"source,omitempty"`
}

type Weather struct {
	Endpoint  string  `yaml:"endpoint" json:"endpoint,omitempty"`
	APIKey    string  `yaml:"api_key" json:"api_key,omitempty"`
	Latitude  float64 `yaml:"latitude" json:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude" json:"longitude,omitempty"`
}

type Firmware struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint,omitempty"`
	Repository string `yaml:"repository" json:"repository,omitempty"`
	Token      string `yaml:"token" json:"token,omitempty"`
	DailyCheck bool   `yaml:"daily_check" json:"daily_check,omitempty"`
}

type Sleep struct {
	Enabled bool `yaml:"enabled" json:"enabled,omitempty"`
	Starts  int  `yaml:"starts" json:"starts,omitempty"`
	Ends    int  `yaml:"ends" json:"ends,omitempty"`
}

type Display struct {
	NoScrolling bool   `yaml:"no_scrolling" json:"no_scrolling,omitempty"`
	Brightness  int    `yaml:"brightness" json:"brightness,omitempty"`
	TimeZone    string `yaml:"time_zone" json:"time_zone,omitempty"`
	Sleep       Sleep  `yaml:"sleep" json:"sleep,omitempty"`
}

type Server struct {
	Listen       string  `yaml:"listen" json:"listen,omitempty"`
	ControlRate  float64 `yaml:"control_rate" json:"control_rate,omitempty"`
	ControlBurst int     `yaml:"control_burst" json:"control_burst,omitempty"`
}

type Status struct {
	RedisAddress  string `yaml:"redis_address" json:"redis_address,omitempty"`
	RedisPassword string `yaml:"redis_password" json:"redis_password,omitempty"`
	RedisDatabase int    `yaml:"redis_database" json:"redis_database,omitempty"`
}

type Feed struct {
	Insecure  bool   `yaml:"insecure" json:"insecure,omitempty"`
	UserAgent string `yaml:"user_agent" json:"user_agent,omitempty"`
}

type Config struct {
	Mode      string    `yaml:"mode" json:"mode,omitempty"`
	Rail      Rail      `yaml:"rail" json:"rail,omitempty"`
	Tube      Tube      `yaml:"tube" json:"tube,omitempty"`
	Bus       Bus       `yaml:"bus" json:"bus,omitempty"`
	Headlines Headlines `yaml:"headlines" json:"headlines,omitempty"`
	Weather   Weather   `yaml:"weather" json:"weather,omitempty"`
	Firmware  Firmware  `yaml:"firmware" json:"firmware,omitempty"`
	Display   Display   `yaml:"display" json:"display,omitempty"`
	Server    Server    `yaml:"server" json:"server,omitempty"`
	Status    Status    `yaml:"status" json:"status,omitempty"`
	Feed      Feed      `yaml:"feed" json:"feed,omitempty"`
}

func Default() Config {
	return Config{
		Mode: scheduler.Rail.String(),
		Firmware: Firmware{
			Repository: "gadec-uk/departures-board",
			DailyCheck: true,
		},
		Display: Display{
			Brightness: 50,
			TimeZone:   "Europe/London",
			Sleep:      Sleep{Starts: 23, Ends: 8},
		},
		Server: Server{
			Listen:       ":8080",
			ControlRate:  1,
			ControlBurst: 5,
		},
		Feed: Feed{
			Insecure:  true,
			UserAgent: "departures-board",
		},
	}
}

// Load reads the settings file, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return config, errors.Wrap(err, "read settings")
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return config, errors.Wrapf(err, "parse settings %s", path)
			}
		}
	}

	if err := config.ApplyEnvironment(util.GetEnvironmentVariables(EnvironmentPrefix)); err != nil {
		return config, err
	}

	return config, config.Validate()
}

// Save writes the settings back so changes made through the config server survive a restart.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "write settings")
	}

	return nil
}

// ApplyEnvironment overrides settings from variables named without the
// EnvironmentPrefix, e.g. CRS for DEPARTURES_CRS.
func (c *Config) ApplyEnvironment(env map[string]string) error {
	overrides := map[string]*string{
		"MODE":           &c.Mode,
		"CRS":            &c.Rail.CRS,
		"NR_TOKEN":       &c.Rail.Token,
		"TFL_APP_KEY":    &c.Tube.AppKey,
		"TUBE_STOP":      &c.Tube.StopID,
		"BUS_ATCO":       &c.Bus.ATCOCode,
		"HEADLINES_URL":  &c.Headlines.URL,
		"WEATHER_KEY":    &c.Weather.APIKey,
		"GITHUB_TOKEN":   &c.Firmware.Token,
		"TIMEZONE":       &c.Display.TimeZone,
		"LISTEN":         &c.Server.Listen,
		"REDIS_ADDRESS":  &c.Status.RedisAddress,
		"REDIS_PASSWORD": &c.Status.RedisPassword,
	}
	for name, target := range overrides {
		if value := env[name]; value != "" {
			*target = value
		}
	}

	if value := env["REDIS_DATABASE"]; value != "" {
		database, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, EnvironmentPrefix+"REDIS_DATABASE")
		}
		c.Status.RedisDatabase = database
	}

	return nil
}

func (c Config) Validate() error {
	if _, err := scheduler.ParseMode(c.Mode); err != nil {
		return err
	}

	if c.Display.Brightness < 0 || c.Display.Brightness > 255 {
		return errors.Errorf("brightness %d outside 0-255", c.Display.Brightness)
	}
	if c.Display.Sleep.Starts < 0 || c.Display.Sleep.Starts > 23 || c.Display.Sleep.Ends < 0 || c.Display.Sleep.Ends > 23 {
		return errors.New("sleep hours must be between 0 and 23")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Rail.TimeOffset < -120 || c.Rail.TimeOffset > 120 {
		return errors.Errorf("rail time offset %d outside -120 to 120 minutes", c.Rail.TimeOffset)
	}

	if c.Weather.APIKey != "" {
		if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 || c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
			return errors.New("weather coordinates out of range")
		}
	}

	if c.Server.ControlRate < 0 || c.Server.ControlBurst < 0 {
		return errors.New("control rate limit must not be negative")
	}

	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Display.TimeZone == "" {
		return time.Local, nil
	}

	location, err := time.LoadLocation(c.Display.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "time zone %q", c.Display.TimeZone)
	}

	return location, nil
}

// Settings maps the file onto what the scheduler needs for one run.
func (c Config) Settings(version string) (scheduler.Settings, error) {
	mode, err := scheduler.ParseMode(c.Mode)
	if err != nil {
		return scheduler.Settings{}, err
	}

	location, err := c.Location()
	if err != nil {
		return scheduler.Settings{}, err
	}

	return scheduler.Settings{
		Mode:         mode,
		FastRefresh:  c.Rail.FastRefresh,
		NoScrolling:  c.Display.NoScrolling,
		HidePlatform: c.Rail.HidePlatform,
		Brightness:   c.Display.Brightness,
		Sleep: scheduler.SleepWindow{
			Enabled: c.Display.Sleep.Enabled,
			Starts:  c.Display.Sleep.Starts,
			Ends:    c.Display.Sleep.Ends,
		},
		DailyFirmwareCheck: c.Firmware.DailyCheck,
		Version:            version,
		TimeZone:           location,
	}, nil
}
