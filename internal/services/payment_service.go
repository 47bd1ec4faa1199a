package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"fortune-report-api/internal/database"
	"fortune-report-api/internal/models"
	"fortune-report-api/internal/report"
	"fortune-report-api/pkg/logging"

	"github.com/google/uuid"
)

var (
	ErrFreeReport     = errors.New("report type is free")
	ErrAlreadyPaid    = errors.New("report is already paid")
	ErrAmountMismatch = errors.New("payment amount does not match order")
)

const defaultCustomerName = "고객"

// CreateOrderRequest asks for a payment widget order for one report slot
type CreateOrderRequest struct {
	Domain       string `json:"domain" binding:"required"`
	RecordID     string `json:"record_id" binding:"required"`
	ReportType   string `json:"report_type" binding:"required"`
	CustomerName string `json:"customer_name"`
	CouponCode   string `json:"coupon_code"`
}

// Checkout is what the front end hands to the payment widget. Paid is set
// when a free coupon already unlocked the report and no widget is needed.
type Checkout struct {
	OrderID        string `json:"order_id"`
	OrderName      string `json:"order_name"`
	Amount         int    `json:"amount"`
	OriginalAmount int    `json:"original_amount"`
	Discount       int    `json:"discount,omitempty"`
	CouponCode     string `json:"coupon_code,omitempty"`
	Paid           bool   `json:"paid"`
	CustomerName   string `json:"customer_name"`
	SuccessURL     string `json:"success_url"`
	FailURL        string `json:"fail_url"`
	ClientKey      string `json:"client_key,omitempty"`
}

// ConfirmOrderRequest mirrors the widget's success redirect parameters
type ConfirmOrderRequest struct {
	PaymentKey string `json:"payment_key" binding:"required"`
	OrderID    string `json:"order_id" binding:"required"`
	Amount     int    `json:"amount" binding:"required"`
}

// FailOrderRequest mirrors the widget's fail redirect parameters
type FailOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PaymentService turns widget orders into paid report slots
type PaymentService struct {
	orders        *database.PaymentOrderRepository
	records       *RecordService
	coupons       *CouponService
	publicBaseURL string
	clientKey     string
	now           func() time.Time
}

// NewPaymentService creates a new payment service; coupons may be nil
func NewPaymentService(orders *database.PaymentOrderRepository, records *RecordService, coupons *CouponService, publicBaseURL, clientKey string) *PaymentService {
	return &PaymentService{
		orders:        orders,
		records:       records,
		coupons:       coupons,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		clientKey:     clientKey,
		now:           time.Now,
	}
}

// CreateOrder records a pending order with the catalog price and returns the
// widget parameters. A discount coupon lowers the amount and is used up on
// confirmation; a free coupon is used up at once and unlocks the report.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Checkout, error) {
	d, rt, rec, err := s.lookupSlot(ctx, req.Domain, req.RecordID, req.ReportType)
	if err != nil {
		return nil, err
	}
	if d.IsFree(rt.Key) {
		return nil, fmt.Errorf("%w: %s", ErrFreeReport, rt.Key)
	}
	if rec.Slot(rt.Key).Paid {
		return nil, ErrAlreadyPaid
	}

	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		customer = defaultCustomerName
	}

	order := &models.PaymentOrder{
		OrderID:      uuid.NewString(),
		OrderName:    rt.OrderName,
		Domain:       d.Name,
		RecordID:     rec.ID,
		ReportType:   rt.Key,
		CustomerName: customer,
		Amount:       rt.Price,
		Status:       models.OrderStatusPending,
	}

	var coupon *models.Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		if s.coupons == nil {
			return nil, fmt.Errorf("%w: coupons are not enabled", ErrInvalidInput)
		}
		if coupon, err = s.coupons.Validate(ctx, code, d.Name); err != nil {
			return nil, err
		}
		order.CouponCode = coupon.Code
		order.Amount = coupon.Apply(rt.Price)
		order.Discount = rt.Price - order.Amount
	}

	if coupon != nil && coupon.IsFree() {
		if err := s.redeemFree(ctx, order, coupon.Code); err != nil {
			return nil, err
		}
	} else if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	logging.Infof("Payment order created - order: %s, domain: %s, id: %s, type: %s, amount: %d, coupon: %s",
		order.OrderID, d.Name, rec.ID, rt.Key, order.Amount, order.CouponCode)

	return &Checkout{
		OrderID:        order.OrderID,
		OrderName:      order.OrderName,
		Amount:         order.Amount,
		OriginalAmount: rt.Price,
		Discount:       order.Discount,
		CouponCode:     order.CouponCode,
		Paid:           order.Status == models.OrderStatusPaid,
		CustomerName:   customer,
		SuccessURL:     s.redirectURL("/payment/success", d.Name, rec.ID, rt.Key),
		FailURL:        s.redirectURL("/payment/fail", d.Name, rec.ID, rt.Key),
		ClientKey:      s.clientKey,
	}, nil
}

// redeemFree uses a free coupon, unlocks the slot and stores the order as paid
func (s *PaymentService) redeemFree(ctx context.Context, order *models.PaymentOrder, code string) error {
	_, store, err := s.records.Store(order.Domain)
	if err != nil {
		return err
	}

	if _, err := s.coupons.Redeem(ctx, code, s.usageFor(order)); err != nil {
		return err
	}

	now := s.now()
	if _, err := store.MarkPaid(ctx, order.RecordID, order.ReportType, now); err != nil {
		logging.Errorf("Free coupon used but unlock failed - code: %s, domain: %s, id: %s, type: %s, error: %v",
			code, order.Domain, order.RecordID, order.ReportType, err)
		return err
	}

	order.Status = models.OrderStatusPaid
	order.PaidAt = &now
	return s.orders.Create(ctx, order)
}

func (s *PaymentService) usageFor(order *models.PaymentOrder) models.CouponUsage {
	return models.CouponUsage{
		Domain:     order.Domain,
		RecordID:   order.RecordID,
		ReportType: order.ReportType,
		OrderID:    order.OrderID,
		UsedAt:     s.now(),
	}
}

// ConfirmOrder marks the order's report slot paid. Confirming an already
// paid order again succeeds without changes.
func (s *PaymentService) ConfirmOrder(ctx context.Context, req ConfirmOrderRequest) (*models.PaymentOrder, error) {
	order, err := s.orders.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusPaid {
		return order, nil
	}
	if req.Amount != order.Amount {
		logging.Warnf("Payment amount mismatch - order: %s, expected: %d, got: %d", order.OrderID, order.Amount, req.Amount)
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrAmountMismatch, order.Amount, req.Amount)
	}

	_, store, err := s.records.Store(order.Domain)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// the slot flips first so a failed order save is repaired by the next confirm
	if _, err := store.MarkPaid(ctx, order.RecordID, order.ReportType, now); err != nil {
		return nil, err
	}

	if order.CouponCode != "" && s.coupons != nil {
		// the payment already went through at the discounted amount
		if _, err := s.coupons.Redeem(ctx, order.CouponCode, s.usageFor(order)); err != nil {
			logging.Warnf("Coupon not redeemed after payment - order: %s, code: %s, error: %v", order.OrderID, order.CouponCode, err)
		}
	}

	order.Status = models.OrderStatusPaid
	order.PaymentKey = req.PaymentKey
	order.PaidAt = &now
	order.FailCode = ""
	order.FailMessage = ""
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	logging.Infof("Payment confirmed - order: %s, domain: %s, id: %s, type: %s",
		order.OrderID, order.Domain, order.RecordID, order.ReportType)
	return order, nil
}

// FailOrder records a failed or cancelled payment. A paid order is never downgraded.
func (s *PaymentService) FailOrder(ctx context.Context, req FailOrderRequest) (*models.PaymentOrder, error) {
	order, err := s.orders.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusPaid {
		logging.Warnf("Ignoring failure for paid order - order: %s, code: %s", order.OrderID, req.Code)
		return order, nil
	}

	order.Status = models.OrderStatusFailed
	order.FailCode = req.Code
	order.FailMessage = req.Message
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	logging.Infof("Payment failed - order: %s, code: %s, message: %s", order.OrderID, req.Code, req.Message)
	return order, nil
}

// ListOrders returns a record's orders, newest first
func (s *PaymentService) ListOrders(ctx context.Context, domain, recordID string) ([]models.PaymentOrder, error) {
	d, _, err := s.records.Store(domain)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByRecord(ctx, d.Name, recordID)
}

// Grant unlocks a slot without a payment (admin or coupon unlock)
func (s *PaymentService) Grant(ctx context.Context, domain, recordID, reportType string) (*models.AnalysisRecord, error) {
	_, rt, _, err := s.lookupSlot(ctx, domain, recordID, reportType)
	if err != nil {
		return nil, err
	}
	_, store, _ := s.records.Store(domain)

	rec, err := store.MarkPaid(ctx, recordID, rt.Key, s.now())
	if err != nil {
		return nil, err
	}
	logging.Infof("Report granted - domain: %s, id: %s, type: %s", domain, recordID, rt.Key)
	return rec, nil
}

func (s *PaymentService) lookupSlot(ctx context.Context, domain, recordID, reportType string) (models.Domain, models.ReportType, *models.AnalysisRecord, error) {
	d, store, err := s.records.Store(domain)
	if err != nil {
		return models.Domain{}, models.ReportType{}, nil, err
	}
	rt, ok := d.ReportType(reportType)
	if !ok {
		return models.Domain{}, models.ReportType{}, nil, fmt.Errorf("%w: %q", report.ErrUnknownReportType, reportType)
	}
	rec, err := store.Get(ctx, recordID)
	if err != nil {
		return models.Domain{}, models.ReportType{}, nil, err
	}
	if rec == nil {
		return models.Domain{}, models.ReportType{}, nil, database.ErrRecordNotFound
	}
	return d, rt, rec, nil
}

func (s *PaymentService) redirectURL(path, domain, id, reportType string) string {
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("id", id)
	q.Set("type", reportType)
	return s.publicBaseURL + path + "?" + q.Encode()
}
