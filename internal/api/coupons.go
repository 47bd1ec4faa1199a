package api

import (
	"net/http"

	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
)

// ValidateCoupon checks a coupon code before checkout
// POST /api/coupons/validate
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req services.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	quote, err := h.coupons.Quote(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, quote)
}

// CreateCoupon adds a coupon
// POST /api/admin/coupons
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req services.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	coupon, err := h.coupons.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.CreatedJSON(c, coupon)
}

// ListCoupons returns every coupon
// GET /api/admin/coupons
func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, coupons)
}

// UpdateCoupon turns a coupon on or off
// PATCH /api/admin/coupons/:code
func (h *Handler) UpdateCoupon(c *gin.Context) {
	var req services.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	coupon, err := h.coupons.SetActive(c.Request.Context(), c.Param("code"), *req.IsActive)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, coupon)
}

// ListCouponUsages returns the usage log
// GET /api/admin/coupons/usages?coupon_code=
func (h *Handler) ListCouponUsages(c *gin.Context) {
	usages, err := h.coupons.Usages(c.Request.Context(), c.Query("coupon_code"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, usages)
}
