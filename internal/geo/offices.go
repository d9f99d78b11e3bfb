package geo

import (
	"sort"
	"strings"

	"github.com/dauletbeck/freedom/internal/utils"
)

// Office is a physical branch that can receive assignments.
type Office struct {
	Name  string
	Coord Coordinate
}

// offices is the static branch catalog. Coordinates are city-level,
// sourced from 2GIS (ru_KZ locale). Declaration order is the tie-break
// order everywhere distances come out equal.
var offices = []Office{
	{"Актау", Coordinate{43.6356, 51.1683}},
	{"Актобе", Coordinate{50.3002, 57.1541}},
	{"Алматы", Coordinate{43.2183, 76.8932}},
	{"Астана", Coordinate{51.1295, 71.4431}},
	{"Атырау", Coordinate{47.1180, 51.9706}},
	{"Караганда", Coordinate{49.8156, 73.0833}},
	{"Кокшетау", Coordinate{53.2828, 69.3786}},
	{"Костанай", Coordinate{53.2146, 63.6319}},
	{"Кызылорда", Coordinate{44.8249, 65.5026}},
	{"Павлодар", Coordinate{52.2856, 76.9412}},
	{"Петропавловск", Coordinate{54.8617, 69.1394}},
	{"Тараз", Coordinate{42.8896, 71.3532}},
	{"Уральск", Coordinate{51.2040, 51.3705}},
	{"Усть-Каменогорск", Coordinate{49.9482, 82.6280}},
	{"Шымкент", Coordinate{42.3154, 69.5870}},
}

// cityToOffices maps a normalised city name to the offices located in
// it. Each city currently holds exactly one office; the slice shape is
// kept so a multi-branch city defers to coordinate-based selection.
var cityToOffices = buildCityIndex()

func buildCityIndex() map[string][]string {
	index := map[string][]string{}
	for _, o := range offices {
		key := strings.ToLower(strings.TrimSpace(o.Name))
		index[key] = append(index[key], o.Name)
	}
	return index
}

var officeNames = func() []string {
	names := make([]string, 0, len(offices))
	for _, o := range offices {
		names = append(names, o.Name)
	}
	sort.Strings(names)
	return names
}()

// OfficeDistance pairs an office with its distance from a query point.
type OfficeDistance struct {
	DistanceKm float64
	Office     Office
}

// Offices returns the catalog in declaration order.
func Offices() []Office {
	out := make([]Office, len(offices))
	copy(out, offices)
	return out
}

// OfficeCoord returns the catalog coordinate for an office name.
func OfficeCoord(name string) (Coordinate, bool) {
	for _, o := range offices {
		if o.Name == name {
			return o.Coord, true
		}
	}
	return Coordinate{}, false
}

// NearestOffices returns every office ordered by great-circle distance
// from the given point, ascending. Equal distances keep catalog order.
func NearestOffices(lat, lon float64) []OfficeDistance {
	out := make([]OfficeDistance, 0, len(offices))
	for _, o := range offices {
		out = append(out, OfficeDistance{
			DistanceKm: utils.HaversineKm(lat, lon, o.Coord.Lat, o.Coord.Lon),
			Office:     o,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// OfficeForCity resolves a client city to the single office located in
// it. Latin aliases are normalised first, then an exact index lookup,
// then a fuzzy match against office city names. Returns "" when the
// city is unknown or maps to more than one office.
func OfficeForCity(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}
	city = CanonicalPlace(city)
	if matched, ok := cityToOffices[strings.ToLower(city)]; ok {
		if len(matched) == 1 {
			return matched[0]
		}
		return ""
	}
	if name, ok := closestMatch(city, officeNames, fuzzyCutoff); ok {
		if matched := cityToOffices[strings.ToLower(name)]; len(matched) == 1 {
			return matched[0]
		}
	}
	return ""
}
