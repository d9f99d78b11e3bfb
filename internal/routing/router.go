package routing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dauletbeck/freedom/internal/geo"
	"github.com/dauletbeck/freedom/internal/models"
)

// hubOffices are tried, in order, when a location cannot be resolved
// or the selected office has no eligible manager.
var hubOffices = []string{"Астана", "Алматы"}

// Office selection rules, recorded on every decision.
const (
	RuleForeignHub  = "foreign_50_50"
	RuleCityMatch   = "city_match"
	RuleNearestGeo  = "nearest_by_geo"
	RuleFallbackHub = "fallback_50_50"
)

// equidistantThresholdKm is the distance band within which the two
// nearest offices are considered interchangeable and the one with the
// lower aggregate manager load wins.
const equidistantThresholdKm = 50.0

// Request is one ticket's routing input: where the client is and which
// eligibility rules the classification activates.
type Request struct {
	Location     models.LocationQuery
	VIP          bool
	TicketType   string
	Language     string
	NegativeTone bool
}

// OfficeAttempt records one eligibility evaluation during routing.
type OfficeAttempt struct {
	Office      string
	Fallback    bool
	Eligibility EligibilityResult
}

// Decision is the terminal routing outcome for one ticket. Manager is
// nil when no office had an eligible manager; that is a valid outcome,
// not an error.
type Decision struct {
	Manager       *models.Manager
	Office        string
	Coord         *geo.Coordinate
	RotationIndex int
	OfficeRule    string
	ReasonCode    string
	ReasonText    string
	Pool          []models.Manager
	Attempts      []OfficeAttempt
}

// Router composes location resolution, office selection, eligibility
// filtering and round-robin assignment for a single ticket at a time.
type Router struct {
	Resolver *geo.Resolver
	Rotation *Rotation
	Logger   zerolog.Logger
}

// Route runs the full routing pipeline for one ticket against the
// supplied roster. It reads manager loads but never mutates the
// roster; the caller owns workload accounting.
func (r *Router) Route(ctx context.Context, roster []models.Manager, req Request) Decision {
	office, coord, rule := r.selectOffice(ctx, roster, req.Location)

	decision := Decision{Office: office, Coord: coord, OfficeRule: rule}

	constraints := Constraints{
		Office:       office,
		VIP:          req.VIP,
		DataChange:   req.TicketType == TypeDataChange,
		Language:     req.Language,
		NegativeTone: req.NegativeTone,
	}

	elig := Eligible(roster, constraints)
	decision.Attempts = append(decision.Attempts, OfficeAttempt{Office: office, Eligibility: elig})

	// No eligible manager at the selected office: escalate through the
	// hub offices, skipping the one already tried. The first hub with a
	// non-empty pool becomes the decision's office.
	if len(elig.Eligible) == 0 {
		for _, hub := range hubOffices {
			if hub == office {
				continue
			}
			hubConstraints := constraints
			hubConstraints.Office = hub
			hubElig := Eligible(roster, hubConstraints)
			decision.Attempts = append(decision.Attempts, OfficeAttempt{Office: hub, Fallback: true, Eligibility: hubElig})
			if len(hubElig.Eligible) > 0 {
				office = hub
				constraints = hubConstraints
				elig = hubElig
				break
			}
		}
	}

	pool := elig.Top(2)
	key := ClassKey(office, constraints.VIP, constraints.DataChange, constraints.Language, constraints.NegativeTone)
	manager, idx := r.Rotation.Assign(pool, key)

	decision.Office = office
	decision.Manager = manager
	decision.RotationIndex = idx
	decision.Pool = pool

	switch {
	case manager == nil:
		decision.ReasonCode = "NO_ELIGIBLE_MANAGERS_GLOBAL"
		decision.ReasonText = "No eligible manager at selected office or fallback hubs"
	case len(decision.Attempts) > 1:
		decision.ReasonCode = "ASSIGNED_CROSS_OFFICE"
		decision.ReasonText = "Assigned at fallback hub office"
	default:
		decision.ReasonCode = "ASSIGNED_LOCAL"
		decision.ReasonText = "Assigned in local office"
	}
	return decision
}

// selectOffice resolves the target office and, when available, the
// client coordinate.
//
//  1. Explicit foreign country: alternate between the hub offices,
//     no coordinate is computed.
//  2. City maps to exactly one office and no street was given: take
//     that office; the gazetteer coordinate is fetched for storage
//     only and never re-derives the choice. A street address bypasses
//     the shortcut so a precise coordinate gets stored.
//  3. Layered resolution; failure lands on the same hub alternation.
//  4. Nearest office by distance, with the load tie-break when the top
//     two are within the equidistance threshold.
func (r *Router) selectOffice(ctx context.Context, roster []models.Manager, loc models.LocationQuery) (string, *geo.Coordinate, string) {
	if geo.IsForeign(loc.Country) {
		return hubOffices[r.Rotation.NextHub()%len(hubOffices)], nil, RuleForeignHub
	}

	if loc.City != "" && loc.Street == "" {
		if office := geo.OfficeForCity(loc.City); office != "" {
			var coord *geo.Coordinate
			if c, ok := geo.LookupPlace(office); ok {
				coord = &c
			}
			return office, coord, RuleCityMatch
		}
	}

	coord := r.Resolver.Resolve(ctx, loc.City, loc.Region, loc.Country, loc.Street, loc.House)
	if coord == nil {
		return hubOffices[r.Rotation.NextHub()%len(hubOffices)], nil, RuleFallbackHub
	}

	sorted := geo.NearestOffices(coord.Lat, coord.Lon)
	if len(sorted) >= 2 {
		first, second := sorted[0], sorted[1]
		if second.DistanceKm-first.DistanceKm <= equidistantThresholdKm {
			if officeLoad(roster, second.Office.Name) < officeLoad(roster, first.Office.Name) {
				return second.Office.Name, coord, RuleNearestGeo
			}
			return first.Office.Name, coord, RuleNearestGeo
		}
	}
	return sorted[0].Office.Name, coord, RuleNearestGeo
}

// officeLoad is the aggregate current load of an office, derived from
// the roster on every call rather than stored.
func officeLoad(roster []models.Manager, office string) int {
	total := 0
	for _, m := range roster {
		if m.Office == office {
			total += m.CurrentLoad
		}
	}
	return total
}
