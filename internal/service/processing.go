package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dauletbeck/freedom/internal/classify"
	"github.com/dauletbeck/freedom/internal/db"
	"github.com/dauletbeck/freedom/internal/metrics"
	"github.com/dauletbeck/freedom/internal/models"
	"github.com/dauletbeck/freedom/internal/routing"
)

const (
	StatusAssigned   = "ASSIGNED"
	StatusUnassigned = "UNASSIGNED"
	StatusError      = "ERROR"
)

// ProcessingService runs the full pipeline over all unassigned
// tickets: classifier enrichment, routing, persistence. Rotation state
// is reset at the start of every run and never survives it.
type ProcessingService struct {
	Store      *db.Store
	Classifier classify.Adapter
	Router     *routing.Router
	Logger     zerolog.Logger
}

type RunSummary struct {
	Events  []map[string]any `json:"events"`
	Counts  map[string]any   `json:"counts"`
	Samples []map[string]any `json:"samples,omitempty"`
}

func (s *ProcessingService) ProcessTickets(ctx context.Context, debug bool) (RunSummary, error) {
	tickets, err := s.Store.GetTicketsForProcessing(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	allManagers, err := s.Store.ListManagers(ctx, "", "")
	if err != nil {
		return RunSummary{}, err
	}
	loadMap := map[string]int{}
	for _, m := range allManagers {
		loadMap[m.ID] = m.CurrentLoad
	}

	s.Router.Rotation.Reset()

	summary := RunSummary{Counts: map[string]any{}}
	start := time.Now()
	summary.Events = append(summary.Events, map[string]any{
		"type":    "import_summary",
		"message": "Tickets ready for processing",
		"count":   len(tickets),
		"time":    time.Now().UTC(),
	})

	var (
		enrichedCount        int
		latencyTotal         int64
		geoCoverage          int
		fallbackCount        int
		assignedCount        int
		assignedLocalCount   int
		assignedCrossCount   int
		unassignedCount      int
		classifierErrors     int
		topUnassignedReasons = map[string]int{}
	)

	for _, t := range tickets {
		analysis, latencyMs, err := s.Classifier.AnalyzeTicket(ctx, t)
		if err != nil {
			classifierErrors++
			metrics.ClassifierErrors.Inc()
			s.writeProcessingError(ctx, t, "CLASSIFIER_ERROR", "Classifier enrichment failed")
			continue
		}
		analysis.Type = classify.NormalizeType(analysis.Type)
		analysis.Sentiment = classify.NormalizeSentiment(analysis.Sentiment)
		analysis.Language = classify.LanguageBucket(analysis.Language)
		enrichedCount++
		latencyTotal += latencyMs

		req := routing.Request{
			Location:     t.Location(),
			VIP:          classify.IsPriority(t.Segment),
			TicketType:   analysis.Type,
			Language:     analysis.Language,
			NegativeTone: analysis.Sentiment == classify.SentimentNegative,
		}
		decision := s.Router.Route(ctx, applyLoads(allManagers, loadMap), req)

		metrics.OfficeSelections.WithLabelValues(decision.OfficeRule).Inc()
		if decision.OfficeRule == routing.RuleNearestGeo || decision.OfficeRule == routing.RuleCityMatch {
			geoCoverage++
		} else {
			fallbackCount++
		}

		if decision.Coord != nil {
			analysis.ClientLat = &decision.Coord.Lat
			analysis.ClientLon = &decision.Coord.Lon
		}

		status := StatusAssigned
		if decision.Manager == nil {
			status = StatusUnassigned
		}
		if err := s.writeDecision(ctx, t, analysis, decision, status); err != nil {
			s.Logger.Error().Err(err).Str("ticket_id", t.ID).Msg("assignment write failed")
			s.writeProcessingError(ctx, t, "DB_ERROR", "Assignment write failed")
			continue
		}
		metrics.TicketsProcessed.WithLabelValues(status).Inc()

		if decision.Manager != nil {
			assignedCount++
			if decision.ReasonCode == "ASSIGNED_CROSS_OFFICE" {
				assignedCrossCount++
			} else {
				assignedLocalCount++
			}
			loadMap[decision.Manager.ID]++
			continue
		}

		unassignedCount++
		reason := lastFailureReason(decision)
		topUnassignedReasons[reason]++
		metrics.UnassignedReasons.WithLabelValues(reason).Inc()
		if debug && len(summary.Samples) < 5 {
			summary.Samples = append(summary.Samples, map[string]any{
				"ticket_id":   t.ID,
				"reason_code": decision.ReasonCode,
				"reason_text": decision.ReasonText,
				"reasoning":   buildReasoning(decision),
			})
		}
	}

	summary.Events = append(summary.Events, map[string]any{
		"type":           "classifier_enrichment",
		"message":        "Classifier enrichment complete",
		"count":          enrichedCount,
		"avg_latency_ms": avgLatency(latencyTotal, enrichedCount),
		"errors":         classifierErrors,
		"time":           time.Now().UTC(),
	})

	summary.Events = append(summary.Events, map[string]any{
		"type":           "office_selection",
		"geo_coverage":   geoCoverage,
		"fallback_count": fallbackCount,
		"time":           time.Now().UTC(),
	})

	summary.Events = append(summary.Events, map[string]any{
		"type":                  "assignment",
		"assigned":              assignedCount,
		"assigned_local":        assignedLocalCount,
		"assigned_cross_office": assignedCrossCount,
		"unassigned":            unassignedCount,
		"time":                  time.Now().UTC(),
	})

	summary.Events = append(summary.Events, map[string]any{
		"type":       "db_save",
		"message":    "Processing saved",
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})

	summary.Counts["tickets_processed"] = len(tickets)
	summary.Counts["assigned"] = assignedCount
	summary.Counts["assigned_local_count"] = assignedLocalCount
	summary.Counts["assigned_cross_office_count"] = assignedCrossCount
	summary.Counts["unassigned"] = unassignedCount
	summary.Counts["classifier_errors"] = classifierErrors
	summary.Counts["top_unassigned_reasons"] = topUnassignedReasons
	return summary, nil
}

func (s *ProcessingService) writeDecision(ctx context.Context, t models.Ticket, analysis models.Analysis, decision routing.Decision, status string) error {
	reasoningJSON, _ := json.Marshal(buildReasoning(decision))

	return s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.Store.UpsertAnalysis(ctx, tx, analysis); err != nil {
			return err
		}

		var managerID *string
		if decision.Manager != nil {
			managerID = &decision.Manager.ID
		}
		assignment := models.Assignment{
			TicketID:      t.ID,
			ManagerID:     managerID,
			Office:        decision.Office,
			RotationIndex: decision.RotationIndex,
			Status:        status,
			ReasonCode:    decision.ReasonCode,
			ReasonText:    decision.ReasonText,
			AssignedAt:    time.Now().UTC(),
		}
		if err := s.Store.UpsertAssignment(ctx, tx, assignment, reasoningJSON); err != nil {
			return err
		}
		if managerID != nil {
			return s.Store.UpdateManagerLoad(ctx, tx, *managerID, 1)
		}
		return nil
	})
}

func (s *ProcessingService) writeProcessingError(ctx context.Context, t models.Ticket, reasonCode string, reasonText string) {
	analysis := models.Analysis{TicketID: t.ID, CreatedAt: time.Now().UTC()}
	decision := routing.Decision{Office: "UNKNOWN", ReasonCode: reasonCode, ReasonText: reasonText}
	if err := s.writeDecision(ctx, t, analysis, decision, StatusError); err != nil {
		s.Logger.Error().Err(err).Str("ticket_id", t.ID).Msg("error record write failed")
	}
}

func avgLatency(total int64, count int) int64 {
	if count == 0 {
		return 0
	}
	return total / int64(count)
}

// applyLoads overlays the run-local load counters onto a fresh copy of
// the roster, so routing sees assignments made earlier in this run.
func applyLoads(managers []models.Manager, loadMap map[string]int) []models.Manager {
	out := make([]models.Manager, 0, len(managers))
	for _, m := range managers {
		m.CurrentLoad = loadMap[m.ID]
		out = append(out, m)
	}
	return out
}

func lastFailureReason(decision routing.Decision) string {
	reason := ""
	for _, attempt := range decision.Attempts {
		if attempt.Eligibility.ReasonCode != "" {
			reason = attempt.Eligibility.ReasonCode
		}
	}
	if reason == "" {
		reason = decision.ReasonCode
	}
	return reason
}

func buildReasoning(decision routing.Decision) map[string]any {
	attempts := make([]map[string]any, 0, len(decision.Attempts))
	for _, attempt := range decision.Attempts {
		entry := map[string]any{
			"office": attempt.Office,
			"counts": stageCounts(attempt.Eligibility),
		}
		if attempt.Fallback {
			entry["fallback_used"] = true
		}
		if len(attempt.Eligibility.Eligible) == 0 {
			code := attempt.Eligibility.ReasonCode
			if code == "" {
				code = "NO_ELIGIBLE_MANAGERS"
			}
			entry["failed_reason_code"] = code
		}
		attempts = append(attempts, entry)
	}

	var poolPayload []map[string]any
	for _, m := range decision.Pool {
		poolPayload = append(poolPayload, map[string]any{
			"manager_id": m.ID,
			"load":       m.CurrentLoad,
		})
	}

	var pickedPayload map[string]any
	if decision.Manager != nil {
		pickedPayload = map[string]any{
			"manager_id":     decision.Manager.ID,
			"method":         "round_robin",
			"rotation_index": decision.RotationIndex,
		}
	}

	reasoning := map[string]any{
		"office_selected": decision.Office,
		"office_rule":     decision.OfficeRule,
		"attempts":        attempts,
		"pool":            poolPayload,
		"picked":          pickedPayload,
	}
	if decision.Coord != nil {
		reasoning["geo"] = map[string]any{
			"lat": decision.Coord.Lat,
			"lon": decision.Coord.Lon,
		}
	}
	return reasoning
}

func stageCounts(elig routing.EligibilityResult) map[string]int {
	counts := map[string]int{}
	for _, stage := range elig.Stages {
		counts[stage.Name] = len(stage.Candidates)
	}
	return counts
}
