package routing

import (
	"sort"
	"strings"

	"github.com/dauletbeck/freedom/internal/models"
)

const (
	PositionSpecialist = "Специалист"
	PositionLead       = "Ведущий специалист"
	PositionChief      = "Главный специалист"
)

const (
	LangKZ      = "KZ"
	LangENG     = "ENG"
	LangDefault = "RU"

	TypeDataChange = "Смена данных"
)

// Constraints is the set of eligibility rules a ticket activates at a
// target office. Office == "" means the advisory any-office mode.
type Constraints struct {
	Office       string
	VIP          bool
	DataChange   bool
	Language     string
	NegativeTone bool
}

// EligibilityResult carries the ordered eligible pool plus the
// intermediate candidate sets per rule, for reasoning payloads and the
// debug endpoint.
type EligibilityResult struct {
	Eligible   []models.Manager
	ReasonCode string
	ReasonText string
	Stages     []EligibilityStage
}

type EligibilityStage struct {
	Name       string
	Candidates []models.Manager
}

// Top returns the n least-loaded eligible managers; the concrete
// assignment path uses Top(2), advisory callers read Eligible directly.
func (r EligibilityResult) Top(n int) []models.Manager {
	if len(r.Eligible) <= n {
		return r.Eligible
	}
	return r.Eligible[:n]
}

// Eligible applies the hard filters in sequence and sorts survivors by
// current load ascending (stable, ties keep roster order). The soft
// senior preference for negative tone is applied last and only when it
// leaves somebody in the pool.
func Eligible(roster []models.Manager, c Constraints) EligibilityResult {
	result := EligibilityResult{}

	pool := filterManagers(roster, func(m models.Manager) bool {
		if strings.TrimSpace(m.Office) == "" {
			return false
		}
		return c.Office == "" || m.Office == c.Office
	})
	result.Stages = append(result.Stages, EligibilityStage{Name: "office_candidates", Candidates: pool})
	if len(pool) == 0 {
		result.ReasonCode = "NO_ELIGIBLE_MANAGERS"
		result.ReasonText = "No managers in selected office"
		return result
	}

	if c.VIP {
		pool = filterManagers(pool, func(m models.Manager) bool {
			return hasSkill(m.Skills, "VIP")
		})
	}
	result.Stages = append(result.Stages, EligibilityStage{Name: "vip_rule", Candidates: pool})
	if c.VIP && len(pool) == 0 {
		result.ReasonCode = "VIP_REQUIRED_NO_MATCH"
		result.ReasonText = "VIP skill required"
		return result
	}

	if c.DataChange {
		pool = filterManagers(pool, func(m models.Manager) bool {
			return strings.Contains(m.Position, PositionChief)
		})
	}
	result.Stages = append(result.Stages, EligibilityStage{Name: "role_rule", Candidates: pool})
	if c.DataChange && len(pool) == 0 {
		result.ReasonCode = "ROLE_MISMATCH"
		result.ReasonText = "Position must be " + PositionChief
		return result
	}

	switch c.Language {
	case LangKZ, LangENG:
		pool = filterManagers(pool, func(m models.Manager) bool {
			return hasSkill(m.Skills, c.Language)
		})
	}
	result.Stages = append(result.Stages, EligibilityStage{Name: "language_rule", Candidates: pool})
	if (c.Language == LangKZ || c.Language == LangENG) && len(pool) == 0 {
		result.ReasonCode = "LANGUAGE_MISMATCH"
		result.ReasonText = "Language skill required"
		return result
	}

	sorted := make([]models.Manager, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentLoad < sorted[j].CurrentLoad
	})
	pool = sorted

	if c.NegativeTone {
		senior := filterManagers(pool, func(m models.Manager) bool {
			return isSenior(m.Position)
		})
		if len(senior) > 0 {
			pool = senior
		}
	}
	result.Stages = append(result.Stages, EligibilityStage{Name: "seniority_preference", Candidates: pool})

	result.Eligible = pool
	return result
}

func isSenior(position string) bool {
	return strings.Contains(position, PositionLead) || strings.Contains(position, PositionChief)
}

func hasSkill(skills []string, target string) bool {
	for _, s := range skills {
		if strings.EqualFold(strings.TrimSpace(s), target) {
			return true
		}
	}
	return false
}

func filterManagers(managers []models.Manager, keep func(models.Manager) bool) []models.Manager {
	out := make([]models.Manager, 0, len(managers))
	for _, m := range managers {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
