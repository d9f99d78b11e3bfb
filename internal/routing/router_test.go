package routing

import (
	"context"
	"testing"

	"github.com/dauletbeck/freedom/internal/geo"
	"github.com/dauletbeck/freedom/internal/models"
)

type fixedGeocoder struct {
	coord geo.Coordinate
	err   error
}

func (f fixedGeocoder) Geocode(ctx context.Context, query string, near *geo.Coordinate) (geo.Coordinate, error) {
	return f.coord, f.err
}

func newTestRouter(g geo.Geocoder) *Router {
	return &Router{
		Resolver: &geo.Resolver{Geocoder: g},
		Rotation: NewRotation(),
	}
}

func TestRouteForeignHubAlternation(t *testing.T) {
	roster := []models.Manager{
		mgr("A1", "Астана", PositionSpecialist, 0),
		mgr("B1", "Алматы", PositionSpecialist, 0),
	}
	r := newTestRouter(nil)
	req := Request{Location: models.LocationQuery{Country: "Russia", City: "Москва"}, Language: LangDefault}

	first := r.Route(context.Background(), roster, req)
	second := r.Route(context.Background(), roster, req)

	if first.OfficeRule != RuleForeignHub || second.OfficeRule != RuleForeignHub {
		t.Fatalf("rules = %q, %q, want foreign hub", first.OfficeRule, second.OfficeRule)
	}
	if first.Office != "Астана" || second.Office != "Алматы" {
		t.Fatalf("offices = %q, %q, want Астана then Алматы", first.Office, second.Office)
	}
	if first.Coord != nil {
		t.Fatalf("foreign tickets must carry no coordinate")
	}
}

func TestRouteCityShortcut(t *testing.T) {
	roster := []models.Manager{mgr("A1", "Алматы", PositionSpecialist, 0)}
	r := newTestRouter(nil)
	req := Request{Location: models.LocationQuery{Country: "Казахстан", City: "Алматы"}, Language: LangDefault}

	d := r.Route(context.Background(), roster, req)
	if d.OfficeRule != RuleCityMatch {
		t.Fatalf("rule = %q, want city match", d.OfficeRule)
	}
	if d.Office != "Алматы" {
		t.Fatalf("office = %q", d.Office)
	}
	if d.Coord == nil || d.Coord.Lat != 43.2220 {
		t.Fatalf("expected gazetteer coordinate for storage, got %+v", d.Coord)
	}
	if d.Manager == nil || d.Manager.ID != "A1" {
		t.Fatalf("manager = %+v", d.Manager)
	}
	if d.ReasonCode != "ASSIGNED_LOCAL" {
		t.Fatalf("reason = %q", d.ReasonCode)
	}
}

func TestRouteStreetAddressBypassesShortcut(t *testing.T) {
	// With a street present the precise remote coordinate must be
	// stored even when the city alone names an office.
	roster := []models.Manager{mgr("A1", "Алматы", PositionSpecialist, 0)}
	g := fixedGeocoder{coord: geo.Coordinate{Lat: 43.2401, Lon: 76.9125}}
	r := newTestRouter(g)
	req := Request{
		Location: models.LocationQuery{City: "Алматы", Street: "Абая", House: "10"},
		Language: LangDefault,
	}

	d := r.Route(context.Background(), roster, req)
	if d.OfficeRule != RuleNearestGeo {
		t.Fatalf("rule = %q, want nearest by geo", d.OfficeRule)
	}
	if d.Coord == nil || d.Coord.Lat != 43.2401 {
		t.Fatalf("coord = %+v, want remote result", d.Coord)
	}
	if d.Office != "Алматы" {
		t.Fatalf("office = %q", d.Office)
	}
}

func TestRouteNearestOfficeEquidistantLoadTieBreak(t *testing.T) {
	// The point sits between Астана and Караганда: roughly 97 and 90 km
	// away, well inside the equidistance band.
	g := fixedGeocoder{coord: geo.Coordinate{Lat: 50.4, Lon: 72.2}}
	req := Request{Location: models.LocationQuery{City: "Пригород"}, Language: LangDefault}

	roster := []models.Manager{
		mgr("K1", "Караганда", PositionSpecialist, 9),
		mgr("A1", "Астана", PositionSpecialist, 2),
	}
	d := newTestRouter(g).Route(context.Background(), roster, req)
	if d.OfficeRule != RuleNearestGeo {
		t.Fatalf("rule = %q", d.OfficeRule)
	}
	if d.Office != "Астана" {
		t.Fatalf("office = %q, want the less loaded Астана", d.Office)
	}

	// With equal loads the closer office keeps the ticket.
	roster = []models.Manager{
		mgr("K1", "Караганда", PositionSpecialist, 2),
		mgr("A1", "Астана", PositionSpecialist, 2),
	}
	d = newTestRouter(g).Route(context.Background(), roster, req)
	if d.Office != "Караганда" {
		t.Fatalf("office = %q, want the nearer Караганда", d.Office)
	}
}

func TestRouteNearestOfficeNoTieBreakBeyondThreshold(t *testing.T) {
	// Темиртау is ~30 km from Караганда and ~160 km from Астана; the
	// load tie-break must not fire.
	g := fixedGeocoder{coord: geo.Coordinate{Lat: 50.0597, Lon: 72.9594}}
	roster := []models.Manager{
		mgr("K1", "Караганда", PositionSpecialist, 50),
		mgr("A1", "Астана", PositionSpecialist, 0),
	}
	req := Request{Location: models.LocationQuery{City: "Темиртау", Street: "Мира"}, Language: LangDefault}

	d := newTestRouter(g).Route(context.Background(), roster, req)
	if d.Office != "Караганда" {
		t.Fatalf("office = %q, want Караганда regardless of load", d.Office)
	}
}

func TestRouteUnresolvableFallsToHubAlternation(t *testing.T) {
	roster := []models.Manager{
		mgr("A1", "Астана", PositionSpecialist, 0),
		mgr("B1", "Алматы", PositionSpecialist, 0),
	}
	r := newTestRouter(nil)
	req := Request{Location: models.LocationQuery{City: "Эльдорадо"}, Language: LangDefault}

	first := r.Route(context.Background(), roster, req)
	second := r.Route(context.Background(), roster, req)
	if first.OfficeRule != RuleFallbackHub {
		t.Fatalf("rule = %q, want fallback hub", first.OfficeRule)
	}
	if first.Office != "Астана" || second.Office != "Алматы" {
		t.Fatalf("offices = %q, %q", first.Office, second.Office)
	}
}

func TestRouteHubEscalationForDataChange(t *testing.T) {
	// Смена данных needs a chief; the local office has none, the first
	// hub does.
	roster := []models.Manager{
		mgr("B1", "Алматы", PositionSpecialist, 0),
		mgr("A1", "Астана", PositionChief, 1),
	}
	r := newTestRouter(nil)
	req := Request{
		Location:   models.LocationQuery{City: "Алматы"},
		TicketType: TypeDataChange,
		Language:   LangDefault,
	}

	d := r.Route(context.Background(), roster, req)
	if d.Office != "Астана" {
		t.Fatalf("office = %q, want the hub with a chief", d.Office)
	}
	if d.Manager == nil || d.Manager.ID != "A1" {
		t.Fatalf("manager = %+v", d.Manager)
	}
	if d.ReasonCode != "ASSIGNED_CROSS_OFFICE" {
		t.Fatalf("reason = %q", d.ReasonCode)
	}
	if len(d.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(d.Attempts))
	}
	if !d.Attempts[1].Fallback {
		t.Fatalf("second attempt must be marked as fallback")
	}
}

func TestRouteNoEligibleManagersAnywhere(t *testing.T) {
	roster := []models.Manager{mgr("B1", "Алматы", PositionSpecialist, 0)}
	r := newTestRouter(nil)
	req := Request{
		Location: models.LocationQuery{City: "Алматы"},
		VIP:      true,
		Language: LangDefault,
	}

	d := r.Route(context.Background(), roster, req)
	if d.Manager != nil {
		t.Fatalf("expected no assignment, got %+v", d.Manager)
	}
	if d.RotationIndex != 0 {
		t.Fatalf("rotation index = %d, want 0", d.RotationIndex)
	}
	if d.ReasonCode != "NO_ELIGIBLE_MANAGERS_GLOBAL" {
		t.Fatalf("reason = %q", d.ReasonCode)
	}
	if d.Office != "Алматы" {
		t.Fatalf("office = %q, selected office must survive on the decision", d.Office)
	}
}

func TestRoutePoolTruncatedToTwo(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0),
		mgr("B", "Алматы", PositionSpecialist, 1),
		mgr("C", "Алматы", PositionSpecialist, 2),
	}
	r := newTestRouter(nil)
	req := Request{Location: models.LocationQuery{City: "Алматы"}, Language: LangDefault}

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		d := r.Route(context.Background(), roster, req)
		if d.Manager == nil {
			t.Fatalf("expected assignment")
		}
		if len(d.Pool) != 2 {
			t.Fatalf("pool = %d, want the top two", len(d.Pool))
		}
		seen[d.Manager.ID] = true
	}
	if seen["C"] {
		t.Fatalf("most loaded manager must stay out of the rotation")
	}
	if !seen["A"] || !seen["B"] {
		t.Fatalf("rotation must alternate between the top two, saw %v", seen)
	}
}

func TestRouteRotationKeyUsesFinalOffice(t *testing.T) {
	// Two data-change tickets escalate from Алматы to Астана; the
	// rotation there must alternate across the two chiefs.
	roster := []models.Manager{
		mgr("B1", "Алматы", PositionSpecialist, 0),
		mgr("A1", "Астана", PositionChief, 0),
		mgr("A2", "Астана", PositionChief, 0),
	}
	r := newTestRouter(nil)
	req := Request{
		Location:   models.LocationQuery{City: "Алматы"},
		TicketType: TypeDataChange,
		Language:   LangDefault,
	}

	first := r.Route(context.Background(), roster, req)
	second := r.Route(context.Background(), roster, req)
	if first.Manager == nil || second.Manager == nil {
		t.Fatalf("expected assignments")
	}
	if first.Manager.ID == second.Manager.ID {
		t.Fatalf("rotation did not advance: both went to %s", first.Manager.ID)
	}
}
