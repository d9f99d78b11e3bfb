package geo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Kazakhstan bounding box, approximate. Remote results outside it are
// rejected so a same-named place in another country cannot win.
const (
	kzLatMin = 40.5
	kzLatMax = 55.5
	kzLonMin = 50.2
	kzLonMax = 87.4
)

// InKazakhstanBBox reports whether a coordinate falls inside the
// national bounding box.
func InKazakhstanBBox(c Coordinate) bool {
	return c.Lat >= kzLatMin && c.Lat <= kzLatMax &&
		c.Lon >= kzLonMin && c.Lon <= kzLonMax
}

// Resolver turns free-text location fields into a coordinate using a
// layered strategy: remote geocoder first (when configured), then the
// static gazetteer with increasingly loose matching. Every tier either
// yields a coordinate or falls through; Resolve never returns an error.
type Resolver struct {
	// Geocoder is nil when no provider credential is configured; the
	// remote tiers are then skipped silently.
	Geocoder Geocoder
	Logger   zerolog.Logger

	warnOnce sync.Once
}

// Resolve returns the client coordinate, or nil when no tier matched.
// Street and house are accepted for interface compatibility but not
// used: the ru_KZ locale on the remote provider disambiguates without
// exact addresses.
func (r *Resolver) Resolve(ctx context.Context, city, region, country, street, house string) *Coordinate {
	_ = country
	_, _ = street, house

	city = CanonicalPlace(strings.TrimSpace(city))
	region = CanonicalPlace(strings.TrimSpace(region))

	// 1. Remote, city + region.
	if city != "" {
		if coord := r.remote(ctx, composeQuery(city, region)); coord != nil {
			return coord
		}
	}

	// 2. Remote, region only.
	if region != "" {
		if coord := r.remote(ctx, composeQuery(region)); coord != nil {
			return coord
		}
	}

	// 3. Gazetteer exact.
	for _, name := range []string{region, city} {
		if name == "" {
			continue
		}
		if coord, ok := LookupPlace(name); ok {
			return &coord
		}
	}

	// 4. Gazetteer fuzzy.
	for _, name := range []string{region, city} {
		if name == "" {
			continue
		}
		if matched, coord, ok := FuzzyPlace(name); ok {
			r.Logger.Info().Str("input", name).Str("matched", matched).Msg("fuzzy gazetteer match")
			return &coord
		}
	}

	// 5. Substring containment.
	for _, name := range []string{region, city} {
		if name == "" {
			continue
		}
		if coord, ok := SubstringPlace(name); ok {
			return &coord
		}
	}

	return nil
}

func (r *Resolver) remote(ctx context.Context, query string) *Coordinate {
	if r.Geocoder == nil {
		r.warnOnce.Do(func() {
			r.Logger.Warn().Msg("remote geocoder not configured, using gazetteer only")
		})
		return nil
	}

	coord, err := r.Geocoder.Geocode(ctx, query, nil)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.Logger.Info().Err(err).Str("query", query).Msg("remote geocode failed, falling through")
		}
		return nil
	}
	if !InKazakhstanBBox(coord) {
		r.Logger.Info().Str("query", query).
			Float64("lat", coord.Lat).Float64("lon", coord.Lon).
			Msg("remote geocode result outside KZ bbox, skipping")
		return nil
	}
	return &coord
}

func composeQuery(parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	out = append(out, "Казахстан")
	return strings.Join(out, ", ")
}

// IsForeign reports whether the country field explicitly names a
// non-Kazakhstan country. Blank means missing data, not foreign; the
// caller falls through to geocoding in that case.
func IsForeign(country string) bool {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return false
	}
	switch country {
	case "казахстан", "kazakhstan", "kz", "қазақстан":
		return false
	}
	return true
}
