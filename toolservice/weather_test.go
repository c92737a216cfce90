package toolservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func weatherStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("appid") != "test-key" {
			t.Errorf("missing api key in %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("units") != "metric" {
			t.Errorf("expected metric units in %s", r.URL.RawQuery)
		}
		switch r.URL.Query().Get("q") {
		case "Lisbon":
			w.Write([]byte(`{
				"name": "Lisbon",
				"weather": [{"description": "clear sky"}],
				"main": {"temp": 21.5, "feels_like": 21.0, "humidity": 55},
				"wind": {"speed": 5.0}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
		}
	}))
}

func TestGetWeather_Success(t *testing.T) {
	stub := weatherStub(t)
	defer stub.Close()
	s := &WeatherServer{APIKey: "test-key", BaseURL: stub.URL}

	res, out, err := s.getWeather(context.Background(), nil, WeatherInput{Location: "Lisbon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("unexpected tool error: %+v", res)
	}
	if out.Location != "Lisbon" || out.TempC != 21.5 || out.Conditions != "clear sky" {
		t.Errorf("unexpected report: %+v", out)
	}
	if out.WindKph != 18 {
		t.Errorf("wind = %v kph, want 18 (5 m/s)", out.WindKph)
	}
}

func TestGetWeather_UnknownCityIsToolError(t *testing.T) {
	stub := weatherStub(t)
	defer stub.Close()
	s := &WeatherServer{APIKey: "test-key", BaseURL: stub.URL}

	res, _, err := s.getWeather(context.Background(), nil, WeatherInput{Location: "Atlantis"})
	if err != nil {
		t.Fatalf("unknown city is a tool error, not a protocol error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatalf("expected IsError result, got %+v", res)
	}
}

func TestGetWeather_MissingLocation(t *testing.T) {
	s := &WeatherServer{APIKey: "test-key"}
	res, _, err := s.getWeather(context.Background(), nil, WeatherInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatalf("expected IsError result, got %+v", res)
	}
}

func TestGetWeather_BadKey(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer stub.Close()
	s := &WeatherServer{APIKey: "bad", BaseURL: stub.URL}

	_, _, err := s.getWeather(context.Background(), nil, WeatherInput{Location: "Lisbon"})
	if err == nil {
		t.Fatal("a rejected key is an operator problem and must be an error")
	}
}
