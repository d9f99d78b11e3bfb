package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var ErrNotFound = errors.New("geocode not found")

// Geocoder is the remote geocoding collaborator: one query string in,
// one best coordinate out, ErrNotFound when the provider has nothing.
type Geocoder interface {
	Geocode(ctx context.Context, query string, near *Coordinate) (Coordinate, error)
}

// TwoGISGeocoder calls the 2GIS items/geocode endpoint. Calls are
// serialized behind a process-wide minimum interval and cached per
// query string.
type TwoGISGeocoder struct {
	BaseURL     string
	APIKey      string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]Coordinate
}

type twoGISResponse struct {
	Result struct {
		Items []struct {
			Point struct {
				Lat *float64 `json:"lat"`
				Lon *float64 `json:"lon"`
			} `json:"point"`
		} `json:"items"`
	} `json:"result"`
}

func (g *TwoGISGeocoder) Geocode(ctx context.Context, query string, near *Coordinate) (Coordinate, error) {
	g.mu.Lock()
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 8 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://catalog.api.2gis.com"
	}
	if g.MinInterval <= 0 {
		g.MinInterval = 250 * time.Millisecond
	}
	if g.cache == nil {
		g.cache = map[string]Coordinate{}
	}
	client, baseURL := g.Client, g.BaseURL
	if cached, ok := g.cache[query]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	sleepFor := time.Until(g.lastReqAt.Add(g.MinInterval))
	if sleepFor > 0 {
		g.mu.Unlock()
		time.Sleep(sleepFor)
		g.mu.Lock()
	}
	g.lastReqAt = time.Now()
	g.mu.Unlock()

	params := url.Values{}
	params.Set("key", g.APIKey)
	params.Set("q", query)
	params.Set("fields", "items.point")
	params.Set("locale", "ru_KZ")
	if near != nil {
		params.Set("point", fmt.Sprintf("%f,%f", near.Lon, near.Lat))
		params.Set("radius", "50000")
	}

	endpoint := baseURL + "/3.0/items/geocode?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinate{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return Coordinate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinate{}, fmt.Errorf("2gis http error: %s", resp.Status)
	}

	var payload twoGISResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinate{}, err
	}
	coord, err := parseTwoGISResponse(payload)
	if err != nil {
		return Coordinate{}, err
	}

	g.mu.Lock()
	g.cache[query] = coord
	g.mu.Unlock()

	return coord, nil
}

func parseTwoGISResponse(payload twoGISResponse) (Coordinate, error) {
	items := payload.Result.Items
	if len(items) == 0 {
		return Coordinate{}, ErrNotFound
	}
	point := items[0].Point
	if point.Lat == nil || point.Lon == nil {
		return Coordinate{}, ErrNotFound
	}
	return Coordinate{Lat: *point.Lat, Lon: *point.Lon}, nil
}
