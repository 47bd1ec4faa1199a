package api

import (
	"net/http"

	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateOrder creates a payment widget order for one report
// POST /api/payments/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	checkout, err := h.payments.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedJSON(c, checkout)
}

// ConfirmOrder is called from the widget's success redirect
// POST /api/payments/confirm
func (h *Handler) ConfirmOrder(c *gin.Context) {
	var req services.ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	order, err := h.payments.ConfirmOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, order)
}

// FailOrder is called from the widget's fail redirect
// POST /api/payments/fail
func (h *Handler) FailOrder(c *gin.Context) {
	var req services.FailOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	order, err := h.payments.FailOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, order)
}

// GrantReport unlocks a report without payment (coupon or support)
// POST /api/admin/:domain/records/:id/reports/:type/paid
func (h *Handler) GrantReport(c *gin.Context) {
	rec, err := h.payments.Grant(c.Request.Context(), c.Param("domain"), c.Param("id"), c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, withoutImage(rec))
}
