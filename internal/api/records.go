package api

import (
	"net/http"
	"strconv"
	"time"

	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SlotStatus is the per-report summary shown in history listings
type SlotStatus struct {
	Paid      bool `json:"paid"`
	Generated bool `json:"generated"`
}

// RecordSummary is one history entry
type RecordSummary struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Name      string                `json:"name,omitempty"`
	Reports   map[string]SlotStatus `json:"reports"`
}

// CreateRecord handles the wizard submission
// POST /api/:domain/records
func (h *Handler) CreateRecord(c *gin.Context) {
	var req services.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	rec, err := h.records.Create(c.Request.Context(), c.Param("domain"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedJSON(c, withoutImage(rec))
}

// ListRecords returns the history page, newest first
// GET /api/:domain/records?limit=20
func (h *Handler) ListRecords(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	domain := c.Param("domain")
	records, err := h.records.List(c.Request.Context(), domain, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	d, _ := models.LookupDomain(domain)
	summaries := make([]RecordSummary, 0, len(records))
	for _, rec := range records {
		report.Migrate(rec, d)
		summary := RecordSummary{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt,
			Reports:   make(map[string]SlotStatus, len(rec.Reports)),
		}
		if rec.Input != nil {
			summary.Name = rec.Input.Name
		}
		for key, slot := range rec.Reports {
			summary.Reports[key] = SlotStatus{Paid: slot.Paid || d.IsFree(key), Generated: slot.Generated()}
		}
		summaries = append(summaries, summary)
	}
	response.SuccessJSON(c, summaries)
}

// GetRecord returns one record in its current shape
// GET /api/:domain/records/:id
func (h *Handler) GetRecord(c *gin.Context) {
	domain := c.Param("domain")
	rec, err := h.records.Get(c.Request.Context(), domain, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	d, _ := models.LookupDomain(domain)
	report.Migrate(rec, d)
	response.SuccessJSON(c, withoutImage(rec))
}

// ListRecordOrders returns the payment orders placed for a record
// GET /api/:domain/records/:id/orders
func (h *Handler) ListRecordOrders(c *gin.Context) {
	orders, err := h.payments.ListOrders(c.Request.Context(), c.Param("domain"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, orders)
}

// withoutImage drops the photo from API output
func withoutImage(rec *models.AnalysisRecord) *models.AnalysisRecord {
	out := rec.Clone()
	out.ImageBase64 = ""
	return out
}
