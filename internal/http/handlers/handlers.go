package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dauletbeck/freedom/internal/classify"
	"github.com/dauletbeck/freedom/internal/db"
	"github.com/dauletbeck/freedom/internal/models"
	"github.com/dauletbeck/freedom/internal/routing"
	"github.com/dauletbeck/freedom/internal/service"
)

type Handler struct {
	Store      *db.Store
	Classifier classify.Adapter
	Router     *routing.Router
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

type ImportSummary struct {
	Tickets struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"tickets"`
	Managers struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"managers"`
	BusinessUnits struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"business_units"`
	Errors []string `json:"errors"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Import CSV data
// @Description Upload tickets, managers, and business units CSV files
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param tickets formData file true "tickets.csv"
// @Param managers formData file true "managers.csv"
// @Param business_units formData file true "business_units.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	ticketsFile, err := c.FormFile("tickets")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "tickets file required", nil)
		return
	}
	managersFile, err := c.FormFile("managers")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "managers file required", nil)
		return
	}
	unitsFile, err := c.FormFile("business_units")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "business_units file required", nil)
		return
	}

	if !validateExt(ticketsFile.Filename) || !validateExt(managersFile.Filename) || !validateExt(unitsFile.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	summary := ImportSummary{Errors: []string{}}
	ctx := c.Request.Context()

	tickets, errs := parseTicketsCSV(ticketsFile)
	summary.Tickets.Parsed = len(tickets)
	summary.Tickets.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	managers, errs := parseManagersCSV(managersFile)
	summary.Managers.Parsed = len(managers)
	summary.Managers.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	units, errs := parseBusinessUnitsCSV(unitsFile)
	summary.BusinessUnits.Parsed = len(units)
	summary.BusinessUnits.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	if err := h.Store.TruncateAll(ctx); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset tables", err.Error())
		return
	}

	inserted, err := h.Store.InsertTickets(ctx, tickets)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert tickets", err.Error())
		return
	}
	summary.Tickets.Inserted = int(inserted)

	inserted, err = h.Store.InsertManagers(ctx, managers)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert managers", err.Error())
		return
	}
	summary.Managers.Inserted = int(inserted)

	inserted, err = h.Store.InsertBusinessUnits(ctx, units)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert business units", err.Error())
		return
	}
	summary.BusinessUnits.Inserted = int(inserted)

	c.JSON(http.StatusOK, summary)
}

// @Summary Process tickets
// @Tags process
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	runID := uuid.NewString()
	if err := h.Store.CreateRun(c.Request.Context(), runID, "RUNNING"); err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	processor := service.ProcessingService{
		Store:      h.Store,
		Classifier: h.Classifier,
		Router:     h.Router,
		Logger:     h.Logger,
	}
	debug := c.Query("debug")
	summary, err := processor.ProcessTickets(c.Request.Context(), debug == "1" || strings.EqualFold(debug, "true"))
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	b, _ := json.Marshal(summary)
	if finishErr := h.Store.FinishRun(c.Request.Context(), runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Msg("processing failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) TicketsList(c *gin.Context) {
	status := c.Query("status")
	office := strings.TrimSpace(c.Query("office"))
	language := classify.LanguageBucket(c.Query("language"))
	if strings.TrimSpace(c.Query("language")) == "" {
		language = ""
	}
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListTickets(c.Request.Context(), status, office, language, q, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tickets", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) TicketDetails(c *gin.Context) {
	id := c.Param("id")
	result, err := h.Store.GetTicketDetails(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ManagersList(c *gin.Context) {
	office := strings.TrimSpace(c.Query("office"))
	skill := strings.ToUpper(strings.TrimSpace(c.Query("skill")))
	items, err := h.Store.ListManagers(c.Request.Context(), office, skill)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list managers", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) BusinessUnitsList(c *gin.Context) {
	items, err := h.Store.ListBusinessUnits(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list business units", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type DebugEligibilityRequest struct {
	TicketID string `form:"ticket_id" validate:"required"`
}

// @Summary Debug eligibility
// @Description What-if eligibility for an already-analyzed ticket: the
// full untruncated pool at the assigned office plus the any-office view.
// @Tags debug
// @Produce json
// @Param ticket_id query string true "Ticket ID"
// @Success 200 {object} map[string]any
// @Router /api/debug/eligibility [get]
func (h *Handler) DebugEligibility(c *gin.Context) {
	var req DebugEligibilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	ticketID := strings.TrimSpace(req.TicketID)

	details, err := h.Store.GetTicketDetails(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load ticket", err.Error())
		return
	}

	ticket, ok := details["ticket"].(models.Ticket)
	if !ok {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Ticket load failed", nil)
		return
	}
	analysisRaw, ok := details["analysis"].(map[string]any)
	if !ok {
		writeError(c, http.StatusBadRequest, "INVALID_STATE", "Ticket has no analysis", nil)
		return
	}
	assignmentRaw, _ := details["assignment"].(map[string]any)
	office := ""
	if assignmentRaw != nil {
		if v, ok := assignmentRaw["office"].(*string); ok && v != nil {
			office = *v
		}
	}

	constraints := routing.Constraints{
		Office:       office,
		VIP:          classify.IsPriority(ticket.Segment),
		DataChange:   classify.NormalizeType(getString(analysisRaw, "type")) == routing.TypeDataChange,
		Language:     classify.LanguageBucket(getString(analysisRaw, "language")),
		NegativeTone: classify.NormalizeSentiment(getString(analysisRaw, "sentiment")) == classify.SentimentNegative,
	}

	managers, err := h.Store.ListManagers(c.Request.Context(), "", "")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load managers", err.Error())
		return
	}

	local := routing.Eligible(managers, constraints)
	globalConstraints := constraints
	globalConstraints.Office = ""
	global := routing.Eligible(managers, globalConstraints)

	resp := gin.H{
		"ticket_id": ticket.ID,
		"office":    office,
		"local": gin.H{
			"stages":      stageIDs(local),
			"eligible":    managerIDs(local.Eligible),
			"reason_code": local.ReasonCode,
			"reason_text": local.ReasonText,
		},
		"global": gin.H{
			"stages":   stageIDs(global),
			"eligible": managerIDs(global.Eligible),
		},
	}
	c.JSON(http.StatusOK, resp)
}

func stageIDs(elig routing.EligibilityResult) map[string][]string {
	out := map[string][]string{}
	for _, stage := range elig.Stages {
		out[stage.Name] = managerIDs(stage.Candidates)
	}
	return out
}

func managerIDs(managers []models.Manager) []string {
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return ids
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func validateExt(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
