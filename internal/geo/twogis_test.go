package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseTwoGISResponse(t *testing.T) {
	var payload twoGISResponse
	body := `{"result":{"items":[{"point":{"lat":43.238,"lon":76.889}}]}}`
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	coord, err := parseTwoGISResponse(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if coord.Lat != 43.238 || coord.Lon != 76.889 {
		t.Fatalf("unexpected coordinate: %+v", coord)
	}
}

func TestParseTwoGISResponseEmpty(t *testing.T) {
	var payload twoGISResponse
	if err := json.Unmarshal([]byte(`{"result":{"items":[]}}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := parseTwoGISResponse(payload); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseTwoGISResponseMissingPoint(t *testing.T) {
	var payload twoGISResponse
	if err := json.Unmarshal([]byte(`{"result":{"items":[{}]}}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := parseTwoGISResponse(payload); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTwoGISGeocodeCachesQueries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("locale") != "ru_KZ" {
			t.Errorf("missing ru_KZ locale")
		}
		w.Write([]byte(`{"result":{"items":[{"point":{"lat":51.1,"lon":71.4}}]}}`))
	}))
	defer srv.Close()

	g := &TwoGISGeocoder{BaseURL: srv.URL, APIKey: "test", MinInterval: time.Millisecond}
	for i := 0; i < 3; i++ {
		coord, err := g.Geocode(context.Background(), "Астана, Казахстан", nil)
		if err != nil {
			t.Fatalf("geocode: %v", err)
		}
		if coord.Lat != 51.1 {
			t.Fatalf("unexpected coordinate: %+v", coord)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestTwoGISGeocodeConcurrentFirstCalls(t *testing.T) {
	// Lazy defaults are set on first use; concurrent first calls must
	// not race on them.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"items":[{"point":{"lat":43.2,"lon":76.9}}]}}`))
	}))
	defer srv.Close()

	g := &TwoGISGeocoder{BaseURL: srv.URL, APIKey: "test", MinInterval: time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coord, err := g.Geocode(context.Background(), fmt.Sprintf("Алматы-%d", i), nil)
			if err != nil {
				t.Errorf("geocode %d: %v", i, err)
				return
			}
			if coord.Lat != 43.2 {
				t.Errorf("geocode %d: unexpected coordinate %+v", i, coord)
			}
		}(i)
	}
	wg.Wait()
}

func TestTwoGISGeocodeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g := &TwoGISGeocoder{BaseURL: srv.URL, APIKey: "bad", MinInterval: time.Millisecond}
	if _, err := g.Geocode(context.Background(), "Алматы", nil); err == nil {
		t.Fatalf("expected error on 403")
	}
}
