package api

import (
	"net/http"

	"fortune-report-api/internal/middleware"
	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler holds the services the HTTP handlers call
type Handler struct {
	records  *services.RecordService
	payments *services.PaymentService
	coupons  *services.CouponService
	machines map[string]*report.Machine // keyed by domain name
	views    *report.Views
}

// NewHandler creates the API handler set
func NewHandler(records *services.RecordService, payments *services.PaymentService, coupons *services.CouponService, machines map[string]*report.Machine, views *report.Views) *Handler {
	if views == nil {
		views = report.NewViews(nil)
	}
	return &Handler{records: records, payments: payments, coupons: coupons, machines: machines, views: views}
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler, adminKey string) {
	// API route group
	api := r.Group("/api")
	{
		api.GET("/domains", h.ListDomains)

		// Record and report routes (per domain)
		domain := api.Group("/:domain")
		{
			domain.POST("/records", h.CreateRecord)
			domain.GET("/records", h.ListRecords)
			domain.GET("/records/:id", h.GetRecord)
			domain.GET("/records/:id/orders", h.ListRecordOrders)
			domain.GET("/records/:id/reports/:type", h.GetReport)
			domain.GET("/report", h.GetReport) // ?id=&type=, the result page's URL shape
		}

		// Payment widget routes
		payments := api.Group("/payments")
		{
			payments.POST("/orders", h.CreateOrder)
			payments.POST("/confirm", h.ConfirmOrder)
			payments.POST("/fail", h.FailOrder)
		}

		api.POST("/coupons/validate", h.ValidateCoupon)

		// Admin routes (require admin key)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(adminKey))
		{
			admin.POST("/:domain/records/:id/reports/:type/paid", h.GrantReport)

			admin.POST("/coupons", h.CreateCoupon)
			admin.GET("/coupons", h.ListCoupons)
			admin.GET("/coupons/usages", h.ListCouponUsages)
			admin.PATCH("/coupons/:code", h.UpdateCoupon)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "fortune-report-api",
		})
	})
}

// ListDomains returns the domain catalog
func (h *Handler) ListDomains(c *gin.Context) {
	response.SuccessJSON(c, models.Domains())
}
