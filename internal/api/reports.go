package api

import (
	"fmt"
	"net/http"

	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportResponse is the resolved report view
type ReportResponse struct {
	Domain     string       `json:"domain"`
	RecordID   string       `json:"record_id"`
	ReportType string       `json:"report_type"`
	Title      string       `json:"title"`
	State      report.State `json:"state"`
	Paid       bool         `json:"paid"`
	Generated  bool         `json:"generated"`
	Price      int          `json:"price,omitempty"`
	HTML       string       `json:"html"`
}

// GetReport runs the unlock flow and returns the rendered view. With
// ?format=html the fragment is returned as text/html.
// GET /api/:domain/records/:id/reports/:type
// GET /api/:domain/report?id=xxx&type=yyy
func (h *Handler) GetReport(c *gin.Context) {
	id, reportType := c.Param("id"), c.Param("type")
	if c.FullPath() == "/api/:domain/report" {
		id, reportType = c.Query("id"), c.DefaultQuery("type", models.FreeReportType)
	}

	domain := c.Param("domain")
	d, ok := models.LookupDomain(domain)
	machine := h.machines[domain]
	if !ok || machine == nil {
		h.reportError(c, fmt.Errorf("%w: %q", services.ErrUnknownDomain, domain))
		return
	}

	out, err := machine.Resolve(c.Request.Context(), id, reportType)
	if err != nil {
		h.reportError(c, err)
		return
	}

	rt, _ := d.ReportType(out.ReportType)
	resp := ReportResponse{
		Domain:     d.Name,
		RecordID:   out.Record.ID,
		ReportType: rt.Key,
		Title:      rt.OrderName,
		State:      out.State,
		Paid:       out.Slot.Paid,
		Generated:  out.Generated,
	}

	status := http.StatusOK
	switch out.State {
	case report.StateReady:
		resp.HTML = h.views.Report(rt, out.Slot.Data)
	case report.StatePaywalled:
		resp.Price = rt.Price
		resp.HTML = h.views.Paywall(d, rt, out.Record.ID)
	case report.StateGenerating:
		status = http.StatusAccepted
		resp.HTML = h.views.Generating()
	}

	if c.Query("format") == "html" {
		c.Data(status, "text/html; charset=utf-8", []byte(resp.HTML))
		return
	}
	response.JSON(c, status, response.Success(resp))
}

// reportError sends the single user-facing error view for the report page
func (h *Handler) reportError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	html := h.views.Error(err)
	if c.Query("format") == "html" {
		c.Data(status, "text/html; charset=utf-8", []byte(html))
		return
	}
	response.ErrorWithData(c, status, report.UserMessage(err), gin.H{"html": html})
}
