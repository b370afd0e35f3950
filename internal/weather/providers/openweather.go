package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-station/internal/weather"
	"github.com/sony/gobreaker"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var errMalformed = errors.New("malformed weather response")

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	name    string
	apiKey  string
	baseURL string
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherURL,
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(baseURL string) *OpenWeatherProvider {
	p.baseURL = baseURL
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// RequestURL builds the current-weather URL for loc.
func (p *OpenWeatherProvider) RequestURL(loc weather.Location) string {
	lang := loc.Lang
	if lang == "" {
		lang = weather.LanguageEnglish
	}

	values := url.Values{}
	values.Set("q", loc.City)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lang", string(lang))

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

type openWeatherPayload struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Record, error) {
	if p.apiKey == "" {
		return weather.Record{}, fmt.Errorf("openweather api key is not configured")
	}
	if loc.City == "" {
		return weather.Record{}, fmt.Errorf("openweather requires a city")
	}

	body, err := doRequest(ctx, p.client, p.circuit, p.RequestURL(loc))
	if err != nil {
		return weather.Record{}, err
	}

	return parseOpenWeather(body)
}

func parseOpenWeather(body []byte) (weather.Record, error) {
	var payload openWeatherPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.Record{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch {
	case len(payload.Weather) == 0:
		return weather.Record{}, fmt.Errorf("%w: empty weather list", errMalformed)
	case payload.Main == nil:
		return weather.Record{}, fmt.Errorf("%w: missing main", errMalformed)
	case payload.Wind == nil:
		return weather.Record{}, fmt.Errorf("%w: missing wind", errMalformed)
	}

	return weather.Record{
		City:         payload.Name,
		Description:  payload.Weather[0].Description,
		IconCode:     payload.Weather[0].Icon,
		TemperatureC: payload.Main.Temp,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
	}, nil
}

// IsMalformed reports whether err came from an unparseable response body.
func IsMalformed(err error) bool {
	return errors.Is(err, errMalformed)
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)
