package routing

import (
	"math/rand"
	"testing"

	"github.com/dauletbeck/freedom/internal/models"
)

func mgr(id, office, position string, load int, skills ...string) models.Manager {
	return models.Manager{
		ID:          id,
		Name:        id,
		Office:      office,
		Position:    position,
		Skills:      skills,
		CurrentLoad: load,
	}
}

func ids(managers []models.Manager) []string {
	out := make([]string, 0, len(managers))
	for _, m := range managers {
		out = append(out, m.ID)
	}
	return out
}

func TestEligibleOfficeFilter(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 1),
		mgr("B", "Астана", PositionSpecialist, 0),
		mgr("C", "", PositionSpecialist, 0),
	}
	res := Eligible(roster, Constraints{Office: "Алматы"})
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "A" {
		t.Fatalf("eligible = %v, want [A]", ids(res.Eligible))
	}
}

func TestEligibleBlankOfficeManagersAlwaysExcluded(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "", PositionChief, 0, "VIP", "KZ", "ENG"),
		mgr("B", "Алматы", PositionSpecialist, 5),
	}
	// Even in the advisory any-office mode a manager without an office
	// cannot be assigned.
	res := Eligible(roster, Constraints{})
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "B" {
		t.Fatalf("eligible = %v, want [B]", ids(res.Eligible))
	}
}

func TestEligibleVIPRule(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0),
		mgr("B", "Алматы", PositionSpecialist, 3, "VIP"),
		mgr("C", "Алматы", PositionLead, 1, "vip"),
	}
	res := Eligible(roster, Constraints{Office: "Алматы", VIP: true})
	got := ids(res.Eligible)
	if len(got) != 2 || got[0] != "C" || got[1] != "B" {
		t.Fatalf("eligible = %v, want [C B] by load", got)
	}

	res = Eligible([]models.Manager{mgr("A", "Алматы", PositionSpecialist, 0)}, Constraints{Office: "Алматы", VIP: true})
	if len(res.Eligible) != 0 {
		t.Fatalf("expected empty pool")
	}
	if res.ReasonCode != "VIP_REQUIRED_NO_MATCH" {
		t.Fatalf("reason = %q", res.ReasonCode)
	}
}

func TestEligibleDataChangeRequiresChief(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0),
		mgr("B", "Алматы", PositionLead, 0),
		mgr("C", "Алматы", PositionChief, 2),
	}
	res := Eligible(roster, Constraints{Office: "Алматы", DataChange: true})
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "C" {
		t.Fatalf("eligible = %v, want [C]", ids(res.Eligible))
	}

	res = Eligible(roster[:2], Constraints{Office: "Алматы", DataChange: true})
	if res.ReasonCode != "ROLE_MISMATCH" {
		t.Fatalf("reason = %q", res.ReasonCode)
	}
}

func TestEligibleLanguageRule(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0, "KZ"),
		mgr("B", "Алматы", PositionSpecialist, 0, "ENG"),
		mgr("C", "Алматы", PositionSpecialist, 0),
	}

	res := Eligible(roster, Constraints{Office: "Алматы", Language: LangKZ})
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "A" {
		t.Fatalf("KZ eligible = %v, want [A]", ids(res.Eligible))
	}

	res = Eligible(roster, Constraints{Office: "Алматы", Language: LangENG})
	if len(res.Eligible) != 1 || res.Eligible[0].ID != "B" {
		t.Fatalf("ENG eligible = %v, want [B]", ids(res.Eligible))
	}

	// Default bucket applies no language filter.
	res = Eligible(roster, Constraints{Office: "Алматы", Language: LangDefault})
	if len(res.Eligible) != 3 {
		t.Fatalf("RU eligible = %v, want all three", ids(res.Eligible))
	}

	res = Eligible(roster[1:2], Constraints{Office: "Алматы", Language: LangKZ})
	if res.ReasonCode != "LANGUAGE_MISMATCH" {
		t.Fatalf("reason = %q", res.ReasonCode)
	}
}

func TestEligibleKZSpeakersOnlyProperty(t *testing.T) {
	// Any randomized roster filtered with the KZ constraint must yield
	// only KZ speakers.
	rng := rand.New(rand.NewSource(42))
	positions := []string{PositionSpecialist, PositionLead, PositionChief}
	for trial := 0; trial < 20; trial++ {
		roster := make([]models.Manager, 0, 30)
		for i := 0; i < 30; i++ {
			var skills []string
			if rng.Intn(2) == 0 {
				skills = append(skills, "KZ")
			}
			if rng.Intn(3) == 0 {
				skills = append(skills, "VIP")
			}
			roster = append(roster, mgr(
				string(rune('A'+i%26)),
				"Алматы",
				positions[rng.Intn(len(positions))],
				rng.Intn(10),
				skills...,
			))
		}
		res := Eligible(roster, Constraints{Office: "Алматы", Language: LangKZ})
		for _, m := range res.Eligible {
			if !hasSkill(m.Skills, "KZ") {
				t.Fatalf("trial %d: non-KZ manager %s in pool", trial, m.ID)
			}
		}
	}
}

func TestEligibleLoadSortStable(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 2),
		mgr("B", "Алматы", PositionSpecialist, 0),
		mgr("C", "Алматы", PositionSpecialist, 2),
		mgr("D", "Алматы", PositionSpecialist, 1),
	}
	res := Eligible(roster, Constraints{Office: "Алматы"})
	got := ids(res.Eligible)
	want := []string{"B", "D", "A", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestEligibleNegativeToneSeniorPreference(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0),
		mgr("B", "Алматы", PositionLead, 4),
		mgr("C", "Алматы", PositionChief, 2),
	}
	res := Eligible(roster, Constraints{Office: "Алматы", NegativeTone: true})
	got := ids(res.Eligible)
	if len(got) != 2 || got[0] != "C" || got[1] != "B" {
		t.Fatalf("eligible = %v, want seniors [C B]", got)
	}
}

func TestEligibleNegativeToneSoftWhenNoSeniors(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 3),
		mgr("B", "Алматы", PositionSpecialist, 1),
	}
	res := Eligible(roster, Constraints{Office: "Алматы", NegativeTone: true})
	got := ids(res.Eligible)
	if len(got) != 2 || got[0] != "B" {
		t.Fatalf("eligible = %v, preference must not empty the pool", got)
	}
}

func TestEligibleEmptyOffice(t *testing.T) {
	roster := []models.Manager{mgr("A", "Астана", PositionSpecialist, 0)}
	res := Eligible(roster, Constraints{Office: "Алматы"})
	if len(res.Eligible) != 0 {
		t.Fatalf("expected empty pool")
	}
	if res.ReasonCode != "NO_ELIGIBLE_MANAGERS" {
		t.Fatalf("reason = %q", res.ReasonCode)
	}
}

func TestEligibleStagesRecorded(t *testing.T) {
	roster := []models.Manager{
		mgr("A", "Алматы", PositionChief, 0, "VIP"),
		mgr("B", "Алматы", PositionSpecialist, 0),
	}
	res := Eligible(roster, Constraints{Office: "Алматы", VIP: true})
	if len(res.Stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(res.Stages))
	}
	if res.Stages[0].Name != "office_candidates" || len(res.Stages[0].Candidates) != 2 {
		t.Fatalf("office stage = %+v", res.Stages[0])
	}
	if res.Stages[1].Name != "vip_rule" || len(res.Stages[1].Candidates) != 1 {
		t.Fatalf("vip stage = %+v", res.Stages[1])
	}
}

func TestTopTruncation(t *testing.T) {
	res := EligibilityResult{Eligible: []models.Manager{
		mgr("A", "Алматы", PositionSpecialist, 0),
		mgr("B", "Алматы", PositionSpecialist, 1),
		mgr("C", "Алматы", PositionSpecialist, 2),
	}}
	if top := res.Top(2); len(top) != 2 || top[0].ID != "A" || top[1].ID != "B" {
		t.Fatalf("Top(2) = %v", ids(top))
	}
	if top := res.Top(5); len(top) != 3 {
		t.Fatalf("Top beyond pool size must return the whole pool")
	}
}
