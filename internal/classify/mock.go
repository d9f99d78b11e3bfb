package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/dauletbeck/freedom/internal/models"
	"github.com/dauletbeck/freedom/internal/utils"
)

// MockAdapter produces deterministic analyses from the ticket ID hash,
// for local runs without a classifier service.
type MockAdapter struct {
	ModelVersion string
}

func (m MockAdapter) AnalyzeTicket(ctx context.Context, t models.Ticket) (models.Analysis, int64, error) {
	start := time.Now()
	h := utils.HashStringToUint64(t.ID)

	priorities := []int{3, 5, 7, 9, 10}
	langs := []string{"RU", "KZ", "ENG"}
	types := []string{"Жалоба", "Консультация", "Смена данных", "Неработоспособность приложения"}
	sentiments := []string{SentimentPositive, SentimentNeutral, SentimentNegative}

	// Reduce in uint64 before converting: int(h) goes negative for
	// hashes with the top bit set and a negative index panics.
	analysis := models.Analysis{
		TicketID:       t.ID,
		Type:           types[int((h/13)%uint64(len(types)))],
		Sentiment:      sentiments[int((h/17)%uint64(len(sentiments)))],
		Priority:       priorities[int(h%uint64(len(priorities)))],
		Language:       langs[int((h/7)%uint64(len(langs)))],
		Summary:        fmt.Sprintf("Ticket %s auto-summary", t.ID),
		Recommendation: "Follow standard process",
		ModelVersion:   m.ModelVersion,
		CreatedAt:      time.Now().UTC(),
	}

	return analysis, time.Since(start).Milliseconds(), nil
}
