// Package config loads client settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "hideandseek.yaml"
	PathEnv     = "HIDEANDSEEK_CONFIG"
	TokenEnv    = "HIDEANDSEEK_TOKEN"
)

// Duration accepts both Go duration strings ("3s") and plain seconds in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

// LocationConfig picks where device fixes come from.
type LocationConfig struct {
	// Source is one of "static", "track" or "websocket".
	Source    string  `yaml:"source"`
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lng"`
	TrackFile string  `yaml:"track_file"`
	URL       string  `yaml:"url"`
}

type Config struct {
	APIBaseURL     string   `yaml:"api_base_url"`
	Token          string   `yaml:"-"`
	UserID         int64    `yaml:"user_id"`
	LogLevel       string   `yaml:"log_level"`
	RequestTimeout Duration `yaml:"request_timeout"`

	PollInterval      Duration `yaml:"poll_interval"`
	LobbyPollInterval Duration `yaml:"lobby_poll_interval"`
	MaxBackoff        Duration `yaml:"max_backoff"`
	NotFoundDelay     Duration `yaml:"not_found_delay"`

	GracePeriod        Duration `yaml:"grace_period"`
	GraceHidersOnly    bool     `yaml:"grace_hiders_only"`
	LocalGeofenceCheck bool     `yaml:"local_geofence_check"`
	RevealDuration     Duration `yaml:"reveal_duration"`

	StatusAddr         string `yaml:"status_addr"`
	NATSURL            string `yaml:"nats_url"`
	EventSubjectPrefix string `yaml:"event_subject_prefix"`
	MapsAPIKey         string `yaml:"maps_api_key"`

	Location LocationConfig `yaml:"location"`
}

func Default() Config {
	return Config{
		APIBaseURL:         "http://localhost:8080",
		LogLevel:           "info",
		RequestTimeout:     Duration(10 * time.Second),
		PollInterval:       Duration(3 * time.Second),
		LobbyPollInterval:  Duration(10 * time.Second),
		MaxBackoff:         Duration(30 * time.Second),
		NotFoundDelay:      Duration(3 * time.Second),
		GracePeriod:        Duration(10 * time.Second),
		GraceHidersOnly:    true,
		LocalGeofenceCheck: true,
		RevealDuration:     Duration(10 * time.Second),
		StatusAddr:         ":8090",
		EventSubjectPrefix: "hideandseek",
		Location:           LocationConfig{Source: "static"},
	}
}

// Load reads path (a missing file is fine), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PathFromEnv returns the config file location.
func PathFromEnv() string {
	return getEnv(PathEnv, DefaultPath)
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.Token = getEnv(TokenEnv, c.Token)
	c.UserID = int64(getEnvAsInt("HIDEANDSEEK_USER_ID", int(c.UserID)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.RequestTimeout = Duration(getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout.Std()))
	c.PollInterval = Duration(getEnvAsDuration("POLL_INTERVAL", c.PollInterval.Std()))
	c.LobbyPollInterval = Duration(getEnvAsDuration("LOBBY_POLL_INTERVAL", c.LobbyPollInterval.Std()))
	c.MaxBackoff = Duration(getEnvAsDuration("MAX_BACKOFF", c.MaxBackoff.Std()))
	c.NotFoundDelay = Duration(getEnvAsDuration("NOT_FOUND_DELAY", c.NotFoundDelay.Std()))
	c.GracePeriod = Duration(getEnvAsDuration("GRACE_PERIOD", c.GracePeriod.Std()))
	c.GraceHidersOnly = getEnvAsBool("GRACE_HIDERS_ONLY", c.GraceHidersOnly)
	c.LocalGeofenceCheck = getEnvAsBool("LOCAL_GEOFENCE_CHECK", c.LocalGeofenceCheck)
	c.RevealDuration = Duration(getEnvAsDuration("REVEAL_DURATION", c.RevealDuration.Std()))
	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.EventSubjectPrefix = getEnv("EVENT_SUBJECT_PREFIX", c.EventSubjectPrefix)
	c.MapsAPIKey = getEnv("GOOGLE_MAPS_API_KEY", c.MapsAPIKey)
	c.Location.Source = getEnv("LOCATION_SOURCE", c.Location.Source)
	c.Location.URL = getEnv("LOCATION_URL", c.Location.URL)
	c.Location.TrackFile = getEnv("LOCATION_TRACK_FILE", c.Location.TrackFile)
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.PollInterval.Std() <= 0 || c.LobbyPollInterval.Std() <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if c.GracePeriod.Std() < time.Second {
		return fmt.Errorf("grace_period %s is shorter than one second", c.GracePeriod.Std())
	}
	switch c.Location.Source {
	case "static", "track", "websocket":
	default:
		return fmt.Errorf("unknown location source %q", c.Location.Source)
	}
	if c.Location.Source == "track" && c.Location.TrackFile == "" {
		return errors.New("location.track_file is required for the track source")
	}
	if c.Location.Source == "websocket" && c.Location.URL == "" {
		return errors.New("location.url is required for the websocket source")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := parseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
