package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	DefaultPath    = "station.toml"
	DefaultEnvFile = ".env"
)

var validate = validator.New()

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Wifi struct {
	// Interface restricts the link check to one interface, e.g. "wlan0".
	Interface       string   `toml:"interface"`
	ConnectInterval Duration `toml:"connect_interval"`
	ConnectAttempts int      `toml:"connect_attempts" validate:"gte=0"`
}

type OpenWeather struct {
	APIKey          string   `toml:"api_key" validate:"required"`
	City            string   `toml:"city" validate:"required"`
	Lang            string   `toml:"lang" validate:"oneof=en de"`
	BaseURL         string   `toml:"base_url" validate:"omitempty,url"`
	Timeout         Duration `toml:"timeout" validate:"gt=0"`
	RefreshInterval Duration `toml:"refresh_interval" validate:"gt=0"`
}

type MQTT struct {
	// BrokerURL is empty when no broker is used.
	BrokerURL       string   `toml:"broker_url" validate:"omitempty,url"`
	Username        string   `toml:"username"`
	Password        string   `toml:"password"`
	MovementTopic   string   `toml:"movement_topic" validate:"required"`
	ConnectInterval Duration `toml:"connect_interval" validate:"gt=0"`
	ConnectAttempts int      `toml:"connect_attempts" validate:"gte=0"`
	PublishTimeout  Duration `toml:"publish_timeout" validate:"gt=0"`
}

type Display struct {
	Driver       string `toml:"driver" validate:"oneof=terminal st7789"`
	SPIPort      string `toml:"spi_port"`
	SPISpeedHz   int64  `toml:"spi_speed_hz" validate:"gte=0"`
	DCPin        string `toml:"dc_pin" validate:"required_if=Driver st7789"`
	ResetPin     string `toml:"reset_pin" validate:"required_if=Driver st7789"`
	BacklightPin string `toml:"backlight_pin"`
}

type Station struct {
	TickInterval         Duration `toml:"tick_interval" validate:"gt=0"`
	MemoryReportInterval Duration `toml:"memory_report_interval" validate:"gte=0"`
	TimeSyncInterval     Duration `toml:"time_sync_interval" validate:"gt=0"`
	TimeSyncAttempts     int      `toml:"time_sync_attempts" validate:"gte=0"`
}

type Log struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
	// File enables a rotating log file in addition to the console.
	File string `toml:"file"`
	JSON bool   `toml:"json"`
}

// AppConfig is the station's static configuration, loaded once at startup.
type AppConfig struct {
	Wifi        Wifi        `toml:"wifi"`
	OpenWeather OpenWeather `toml:"openweather"`
	MQTT        MQTT        `toml:"mqtt"`
	Display     Display     `toml:"display"`
	Station     Station     `toml:"station"`
	Log         Log         `toml:"log"`
}

// Default returns the configuration used for anything the file and the
// environment leave unset.
func Default() AppConfig {
	return AppConfig{
		Wifi: Wifi{
			ConnectInterval: Duration(500 * time.Millisecond),
			ConnectAttempts: 60,
		},
		OpenWeather: OpenWeather{
			Lang:            "en",
			Timeout:         Duration(30 * time.Second),
			RefreshInterval: Duration(15 * time.Minute),
		},
		MQTT: MQTT{
			MovementTopic:   "Bewegung",
			ConnectInterval: Duration(100 * time.Millisecond),
			ConnectAttempts: 100,
			PublishTimeout:  Duration(5 * time.Second),
		},
		Display: Display{
			Driver:     "terminal",
			SPISpeedHz: 40_000_000,
		},
		Station: Station{
			TickInterval:     Duration(time.Second),
			TimeSyncInterval: Duration(time.Second),
			TimeSyncAttempts: 60,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads the .env file next to path (if any) into the environment, the
// TOML file at path (if any) over the defaults, then applies environment
// overrides and validates the result.
func Load(fsys afero.Fs, path string) (*AppConfig, error) {
	if err := loadDotenv(fsys, DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg := Default()

	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Msgf("config: %s not found, using defaults and environment", path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// loadDotenv sets variables from a .env file without overriding ones that
// are already set.
func loadDotenv(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Msgf("config: no %s file", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.OpenWeather.APIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeather.APIKey)
	cfg.OpenWeather.City = getenvDefault("WEATHER_LOCATION_CITY", cfg.OpenWeather.City)
	cfg.OpenWeather.Lang = getenvDefault("WEATHER_LANG", cfg.OpenWeather.Lang)
	cfg.MQTT.BrokerURL = getenvDefault("MQTT_BROKER_URL", cfg.MQTT.BrokerURL)
	cfg.MQTT.Username = getenvDefault("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getenvDefault("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.MovementTopic = getenvDefault("MQTT_MOVEMENT_TOPIC", cfg.MQTT.MovementTopic)
	cfg.Wifi.Interface = getenvDefault("WIFI_INTERFACE", cfg.Wifi.Interface)
	cfg.Display.Driver = getenvDefault("DISPLAY_DRIVER", cfg.Display.Driver)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getenvDefault("LOG_FILE", cfg.Log.File)
	cfg.Station.TimeSyncAttempts = getenvInt("TIME_SYNC_ATTEMPTS", cfg.Station.TimeSyncAttempts)

	var err error
	if cfg.OpenWeather.RefreshInterval, err = getenvDuration("FETCH_INTERVAL", cfg.OpenWeather.RefreshInterval); err != nil {
		return err
	}
	if cfg.Station.TickInterval, err = getenvDuration("TICK_INTERVAL", cfg.Station.TickInterval); err != nil {
		return err
	}
	if cfg.Station.MemoryReportInterval, err = getenvDuration("MEMORY_REPORT_INTERVAL", cfg.Station.MemoryReportInterval); err != nil {
		return err
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Warn().Msgf("config: ignoring invalid %s=%q", key, v)
	}
	return def
}

func getenvDuration(key string, def Duration) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return Duration(d), nil
}
