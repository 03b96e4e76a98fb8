package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone        = "UTC"
	configPathEnv          = "CAMPUS_NOTIFY_CONFIG"
	databaseDriverEnv      = "DATABASE_DRIVER"
	databaseDSNEnv         = "DATABASE_DSN"
	channelEndpointEnv     = "CHANNEL_ENDPOINT"
	sideChannelEndpointEnv = "SIDE_CHANNEL_ENDPOINT"
	sideChannelTokenEnv    = "SIDE_CHANNEL_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Source        SourceConfig       `yaml:"source"`
	Channel       ChannelConfig      `yaml:"channel"`
	Dispatch      DispatchConfig     `yaml:"dispatch"`
	Notifications NotificationConfig `yaml:"notifications"`
	SideChannel   SideChannelConfig  `yaml:"sideChannel"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig describes the ledger database connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SourceConfig points at the bulletin page being watched.
type SourceConfig struct {
	PageURL  string `yaml:"pageUrl"`
	BaseURL  string `yaml:"baseUrl"`
	Selector string `yaml:"selector"`
}

// ChannelConfig wires the outbound push API.
type ChannelConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout resolves the configured request timeout.
func (c ChannelConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatchConfig bounds fan-out parallelism and send rate.
type DispatchConfig struct {
	Workers    int `yaml:"workers"`
	RatePerSec int `yaml:"ratePerSec"`
}

// NotificationConfig carries composed-message fixtures.
type NotificationConfig struct {
	Footer        string `yaml:"footer"`
	FirstYearTag  string `yaml:"firstYearTag"`
	SecondYearTag string `yaml:"secondYearTag"`
}

// SideChannelConfig describes the optional broadcast webhook.
type SideChannelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

// SchedulerConfig defines when the schedule command triggers runs.
type SchedulerConfig struct {
	RealtimeCron string         `yaml:"realtimeCron"`
	DailyCron    string         `yaml:"dailyCron"`
	Timezone     string         `yaml:"timezone"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(channelEndpointEnv); v != "" {
		c.Channel.Endpoint = v
	}

	if v := os.Getenv(sideChannelEndpointEnv); v != "" {
		c.SideChannel.Endpoint = v
	}

	if v := os.Getenv(sideChannelTokenEnv); v != "" {
		c.SideChannel.Token = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Source.PageURL != "" {
		base.Source.PageURL = override.Source.PageURL
	}
	if override.Source.BaseURL != "" {
		base.Source.BaseURL = override.Source.BaseURL
	}
	if override.Source.Selector != "" {
		base.Source.Selector = override.Source.Selector
	}

	if override.Channel.Endpoint != "" {
		base.Channel.Endpoint = override.Channel.Endpoint
	}
	if override.Channel.TimeoutSeconds > 0 {
		base.Channel.TimeoutSeconds = override.Channel.TimeoutSeconds
	}

	if override.Dispatch.Workers > 0 {
		base.Dispatch.Workers = override.Dispatch.Workers
	}
	if override.Dispatch.RatePerSec > 0 {
		base.Dispatch.RatePerSec = override.Dispatch.RatePerSec
	}

	if override.Notifications.Footer != "" {
		base.Notifications.Footer = override.Notifications.Footer
	}
	if override.Notifications.FirstYearTag != "" {
		base.Notifications.FirstYearTag = override.Notifications.FirstYearTag
	}
	if override.Notifications.SecondYearTag != "" {
		base.Notifications.SecondYearTag = override.Notifications.SecondYearTag
	}

	if override.SideChannel.Endpoint != "" {
		base.SideChannel.Endpoint = override.SideChannel.Endpoint
	}
	if override.SideChannel.Token != "" {
		base.SideChannel.Token = override.SideChannel.Token
	}

	if override.Scheduler.RealtimeCron != "" {
		base.Scheduler.RealtimeCron = override.Scheduler.RealtimeCron
	}
	if override.Scheduler.DailyCron != "" {
		base.Scheduler.DailyCron = override.Scheduler.DailyCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "campusnotify.db"},
		Source: SourceConfig{
			PageURL:  "https://www.c.u-tokyo.ac.jp/zenki/news/index.html",
			BaseURL:  "https://www.c.u-tokyo.ac.jp",
			Selector: "#newslist2 dl",
		},
		Channel: ChannelConfig{
			Endpoint:       "https://notify-api.line.me/api/notify",
			TimeoutSeconds: 10,
		},
		Dispatch: DispatchConfig{Workers: 4, RatePerSec: 10},
		Notifications: NotificationConfig{
			Footer:        "\nUnsubscribe: https://notify-bot.line.me/my/",
			FirstYearTag:  "#first_year_announcements",
			SecondYearTag: "#second_year_announcements",
		},
		SideChannel: SideChannelConfig{Endpoint: "", Token: ""},
		Scheduler: SchedulerConfig{
			RealtimeCron: "*/10 * * * *",
			DailyCron:    "0 18 * * *",
			Timezone:     defaultTimezone,
			location:     tz,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
