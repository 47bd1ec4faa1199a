package database

import (
	"context"
	"errors"
	"fmt"

	"fortune-report-api/internal/models"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("payment order not found")

// PaymentOrderRepository persists payment widget orders
type PaymentOrderRepository struct {
	db *gorm.DB
}

// NewPaymentOrderRepository creates a new repository
func NewPaymentOrderRepository(db *gorm.DB) *PaymentOrderRepository {
	return &PaymentOrderRepository{db: db}
}

// Create 주문 생성
func (r *PaymentOrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create payment order: %w", err)
	}
	return nil
}

// Save 주문 갱신
func (r *PaymentOrderRepository) Save(ctx context.Context, order *models.PaymentOrder) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("failed to update payment order: %w", err)
	}
	return nil
}

// GetByOrderID 주문번호로 조회
func (r *PaymentOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListByRecord 레코드의 모든 주문 (최신순)
func (r *PaymentOrderRepository) ListByRecord(ctx context.Context, domain, recordID string) ([]models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("domain = ? AND record_id = ?", domain, recordID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
