package toolservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultWeatherBaseURL is the OpenWeatherMap API root.
const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// WeatherServer serves the get_weather tool over stdio.
type WeatherServer struct {
	// APIKey is the OpenWeatherMap API key. Required.
	APIKey string

	// BaseURL overrides the API root, for tests.
	BaseURL string

	// Client overrides the HTTP client; nil uses a 10s-timeout default.
	Client *http.Client
}

// WeatherInput are the arguments for get_weather.
type WeatherInput struct {
	Location string `json:"location" jsonschema:"city name, optionally with country code"`
}

// WeatherOutput is the structured weather report.
type WeatherOutput struct {
	Location   string  `json:"location"`
	TempC      float64 `json:"temp_c"`
	FeelsLikeC float64 `json:"feels_like_c"`
	Humidity   int     `json:"humidity"`
	Conditions string  `json:"conditions"`
	WindKph    float64 `json:"wind_kph"`
}

// owmResponse is the subset of the OpenWeatherMap payload we report.
type owmResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Run serves the weather service on stdio until ctx is canceled.
func (s *WeatherServer) Run(ctx context.Context) error {
	if s.APIKey == "" {
		return fmt.Errorf("toolservice: weather: API key is required")
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "weather", Version: serverVersion}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_weather",
		Description: "Gets current weather conditions for a city",
	}, s.getWeather)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *WeatherServer) getWeather(ctx context.Context, req *mcp.CallToolRequest, in WeatherInput) (*mcp.CallToolResult, WeatherOutput, error) {
	if in.Location == "" {
		return toolError("location is required"), WeatherOutput{}, nil
	}

	base := s.BaseURL
	if base == "" {
		base = DefaultWeatherBaseURL
	}
	q := url.Values{}
	q.Set("q", in.Location)
	q.Set("appid", s.APIKey)
	q.Set("units", "metric")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, WeatherOutput{}, fmt.Errorf("toolservice: weather request: %w", err)
	}
	resp, err := s.client().Do(httpReq)
	if err != nil {
		return nil, WeatherOutput{}, fmt.Errorf("toolservice: weather fetch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Unknown city is a caller mistake, not a service failure.
		return toolError(fmt.Sprintf("city not found: %s", in.Location)), WeatherOutput{}, nil
	case http.StatusUnauthorized:
		return nil, WeatherOutput{}, fmt.Errorf("toolservice: weather: API key rejected")
	default:
		return nil, WeatherOutput{}, fmt.Errorf("toolservice: weather: unexpected status %d", resp.StatusCode)
	}

	var payload owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, WeatherOutput{}, fmt.Errorf("toolservice: weather decode: %w", err)
	}

	out := WeatherOutput{
		Location:   payload.Name,
		TempC:      payload.Main.Temp,
		FeelsLikeC: payload.Main.FeelsLike,
		Humidity:   payload.Main.Humidity,
		// OpenWeatherMap reports wind in m/s with metric units.
		WindKph: payload.Wind.Speed * 3.6,
	}
	if len(payload.Weather) > 0 {
		out.Conditions = payload.Weather[0].Description
	}
	return nil, out, nil
}

func (s *WeatherServer) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
