package weather

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultBaseURL is the weatherapi.com endpoint root.
const DefaultBaseURL = "http://api.weatherapi.com/v1"

// DefaultCacheTTL bounds how often we hit the API for the same data.
const DefaultCacheTTL = 5 * time.Minute

// Condition is the shared condition block of weatherapi.com responses.
type Condition struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

// Current is the current-conditions block.
type Current struct {
	Condition    Condition `json:"condition"`
	TempC        float64   `json:"temp_c"`
	FeelsLikeC   float64   `json:"feelslike_c"`
	Humidity     int       `json:"humidity"`
	WindKph      float64   `json:"wind_kph"`
	PressureMb   float64   `json:"pressure_mb"`
}

// Hour is one hourly forecast slot.
type Hour struct {
	Time         string    `json:"time"` // "2006-01-02 15:04"
	Condition    Condition `json:"condition"`
	TempC        float64   `json:"temp_c"`
	FeelsLikeC   float64   `json:"feelslike_c"`
	Humidity     int       `json:"humidity"`
	WindKph      float64   `json:"wind_kph"`
	ChanceOfRain int       `json:"chance_of_rain"`
}

// Forecast is today's hourly forecast.
type Forecast struct {
	Hours []Hour
}

type currentResponse struct {
	Current Current `json:"current"`
}

type forecastResponse struct {
	Forecast struct {
		ForecastDay []struct {
			Hour []Hour `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// Client fetches weather data from weatherapi.com with a small cache.
type Client struct {
	apiKey  string
	lat     float64
	lon     float64
	baseURL string
	http    *http.Client

	mu               sync.Mutex
	cacheTTL         time.Duration
	cachedCurrent    *Current
	currentFetchedAt time.Time
	cachedForecast   *Forecast
	forecastFetched  time.Time
	now              func() time.Time
}

func NewClient(apiKey string, lat, lon float64) *Client {
	return &Client{
		apiKey:   apiKey,
		lat:      lat,
		lon:      lon,
		baseURL:  DefaultBaseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
}

func (c *Client) fetchJSON(endpoint string, query url.Values, out any) error {
	query.Set("key", c.apiKey)
	query.Set("q", fmt.Sprintf("%g,%g", c.lat, c.lon))
	query.Set("lang", "ru")

	resp, err := c.http.Get(c.baseURL + endpoint + "?" + query.Encode())
	if err != nil {
		return fmt.Errorf("weatherapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weatherapi returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weatherapi response: %w", err)
	}
	return nil
}

// GetCurrent returns current conditions, cached for the cache TTL.
func (c *Client) GetCurrent() (*Current, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedCurrent != nil && c.now().Sub(c.currentFetchedAt) < c.cacheTTL {
		return c.cachedCurrent, nil
	}

	var resp currentResponse
	if err := c.fetchJSON("/current.json", url.Values{}, &resp); err != nil {
		return nil, err
	}

	c.cachedCurrent = &resp.Current
	c.currentFetchedAt = c.now()
	return c.cachedCurrent, nil
}

// GetForecast returns today's hourly forecast, cached for the cache TTL.
func (c *Client) GetForecast() (*Forecast, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedForecast != nil && c.now().Sub(c.forecastFetched) < c.cacheTTL {
		return c.cachedForecast, nil
	}

	var resp forecastResponse
	query := url.Values{}
	query.Set("days", "1")
	query.Set("aqi", "no")
	query.Set("alerts", "no")
	if err := c.fetchJSON("/forecast.json", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Forecast.ForecastDay) == 0 {
		return nil, fmt.Errorf("weatherapi returned empty forecast")
	}

	c.cachedForecast = &Forecast{Hours: resp.Forecast.ForecastDay[0].Hour}
	c.forecastFetched = c.now()
	return c.cachedForecast, nil
}
