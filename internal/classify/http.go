package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dauletbeck/freedom/internal/models"
)

// HTTPAdapter calls a remote classifier service over JSON.
type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
}

type requestBody struct {
	TicketID string `json:"ticket_id"`
	Segment  string `json:"segment"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Message  string `json:"message"`
}

type responseBody struct {
	TicketID       string `json:"ticket_id"`
	Type           string `json:"type"`
	Sentiment      string `json:"sentiment"`
	Priority       int    `json:"priority"`
	Language       string `json:"language"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
	ModelVersion   string `json:"model_version"`
}

func (h HTTPAdapter) AnalyzeTicket(ctx context.Context, t models.Ticket) (models.Analysis, int64, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}

	payload := requestBody{
		TicketID: t.ID,
		Segment:  t.Segment,
		City:     t.City,
		Region:   t.Region,
		Message:  t.Message,
	}
	b, _ := json.Marshal(payload)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/analyze", bytes.NewBuffer(b))
	if err != nil {
		return models.Analysis{}, 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return models.Analysis{}, time.Since(start).Milliseconds(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Analysis{}, time.Since(start).Milliseconds(), errors.New("classifier service error")
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.Analysis{}, time.Since(start).Milliseconds(), err
	}

	analysis := models.Analysis{
		TicketID:       t.ID,
		Type:           r.Type,
		Sentiment:      r.Sentiment,
		Priority:       r.Priority,
		Language:       r.Language,
		Summary:        r.Summary,
		Recommendation: r.Recommendation,
		ModelVersion:   r.ModelVersion,
		CreatedAt:      time.Now().UTC(),
	}
	return analysis, time.Since(start).Milliseconds(), nil
}
