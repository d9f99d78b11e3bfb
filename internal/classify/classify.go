// Package classify wraps the external text classifier that derives
// ticket type, sentiment and language from free-form content. The
// routing engine treats it as an opaque collaborator returning a
// fixed-vocabulary result.
package classify

import (
	"context"

	"github.com/dauletbeck/freedom/internal/models"
)

type Adapter interface {
	AnalyzeTicket(ctx context.Context, t models.Ticket) (models.Analysis, int64, error)
}
