package services

import (
	"context"
	"fmt"
	"strings"

	"fortune-report-api/internal/database"
	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/pkg/logging"
)

// ValidateCouponRequest checks a code before checkout. ReportType is optional;
// when given the quote includes the discounted amount.
type ValidateCouponRequest struct {
	Code       string `json:"code" binding:"required"`
	Domain     string `json:"domain" binding:"required"`
	ReportType string `json:"report_type"`
}

// CouponQuote describes what a valid coupon does
type CouponQuote struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	DiscountType   string `json:"discount_type"`
	DiscountAmount int    `json:"discount_amount"`
	IsFree         bool   `json:"is_free"`
	Price          int    `json:"price,omitempty"`
	Amount         int    `json:"amount,omitempty"`
}

// CreateCouponRequest is the admin form for a new coupon
type CreateCouponRequest struct {
	Code           string `json:"code" binding:"required"`
	Name           string `json:"name" binding:"required"`
	ServiceType    string `json:"service_type"`
	DiscountType   string `json:"discount_type" binding:"required,oneof=free amount"`
	DiscountAmount int    `json:"discount_amount" binding:"min=0"`
	TotalQuantity  int    `json:"total_quantity" binding:"required,min=1"`
}

// UpdateCouponRequest toggles a coupon
type UpdateCouponRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CouponService validates and redeems coupons
type CouponService struct {
	coupons *database.CouponRepository
}

// NewCouponService creates a new coupon service
func NewCouponService(coupons *database.CouponRepository) *CouponService {
	return &CouponService{coupons: coupons}
}

// Validate returns the coupon when it can be used for domain
func (s *CouponService) Validate(ctx context.Context, code, domain string) (*models.Coupon, error) {
	if _, ok := models.LookupDomain(domain); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := database.CheckCoupon(coupon, domain); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Quote validates a coupon and prices it against a report type when one is named
func (s *CouponService) Quote(ctx context.Context, req ValidateCouponRequest) (*CouponQuote, error) {
	coupon, err := s.Validate(ctx, req.Code, req.Domain)
	if err != nil {
		return nil, err
	}

	quote := &CouponQuote{
		Code:           coupon.Code,
		Name:           coupon.Name,
		DiscountType:   coupon.DiscountType,
		DiscountAmount: coupon.DiscountAmount,
		IsFree:         coupon.IsFree(),
	}
	if req.ReportType != "" {
		d, _ := models.LookupDomain(req.Domain)
		rt, ok := d.ReportType(req.ReportType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", report.ErrUnknownReportType, req.ReportType)
		}
		quote.Price = rt.Price
		quote.Amount = coupon.Apply(rt.Price)
	}
	return quote, nil
}

// Redeem uses one coupon for usage.Domain and logs it
func (s *CouponService) Redeem(ctx context.Context, code string, usage models.CouponUsage) (*models.Coupon, error) {
	coupon, err := s.coupons.Redeem(ctx, code, usage)
	if err != nil {
		return nil, err
	}
	logging.Infof("Coupon redeemed - code: %s, domain: %s, id: %s, type: %s, remaining: %d",
		coupon.Code, usage.Domain, usage.RecordID, usage.ReportType, coupon.RemainingQuantity)
	return coupon, nil
}

// Create adds a coupon with its full quantity remaining
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*models.Coupon, error) {
	service := strings.TrimSpace(req.ServiceType)
	if service == "" {
		service = models.CouponServiceAll
	}
	if _, ok := models.LookupDomain(service); !ok && service != models.CouponServiceAll {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, service)
	}

	switch req.DiscountType {
	case models.CouponDiscountFree:
	case models.CouponDiscountAmount:
		if req.DiscountAmount <= 0 {
			return nil, fmt.Errorf("%w: discount amount must be positive", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidInput, req.DiscountType)
	}

	if models.NormalizeCouponCode(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", ErrInvalidInput)
	}
	if req.TotalQuantity <= 0 {
		return nil, fmt.Errorf("%w: total quantity must be positive", ErrInvalidInput)
	}

	coupon := &models.Coupon{
		Code:              req.Code,
		Name:              strings.TrimSpace(req.Name),
		ServiceType:       service,
		DiscountType:      req.DiscountType,
		DiscountAmount:    req.DiscountAmount,
		TotalQuantity:     req.TotalQuantity,
		RemainingQuantity: req.TotalQuantity,
		IsActive:          true,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, err
	}

	logging.Infof("Coupon created - code: %s, service: %s, type: %s, quantity: %d",
		coupon.Code, coupon.ServiceType, coupon.DiscountType, coupon.TotalQuantity)
	return coupon, nil
}

// List returns all coupons, newest first
func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx)
}

// SetActive turns a coupon on or off
func (s *CouponService) SetActive(ctx context.Context, code string, active bool) (*models.Coupon, error) {
	return s.coupons.SetActive(ctx, code, active)
}

// Usages returns the usage log, optionally for one code
func (s *CouponService) Usages(ctx context.Context, code string) ([]models.CouponUsage, error) {
	return s.coupons.ListUsages(ctx, code)
}
