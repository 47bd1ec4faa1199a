package models

import (
	"time"
)

// Payment order statuses
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// PaymentOrder is one payment widget attempt for a single report slot
type PaymentOrder struct {
	BaseModel

	// 주문 식별
	OrderID   string `json:"order_id" gorm:"not null;size:64;uniqueIndex"`
	OrderName string `json:"order_name" gorm:"size:200"`

	// 대상 보고서
	Domain     string `json:"domain" gorm:"not null;size:32"`
	RecordID   string `json:"record_id" gorm:"not null;size:64;index"`
	ReportType string `json:"report_type" gorm:"not null;size:32"`

	CustomerName string `json:"customer_name" gorm:"size:100"`
	Amount       int    `json:"amount"`

	// 쿠폰 할인
	CouponCode string `json:"coupon_code,omitempty" gorm:"size:64"`
	Discount   int    `json:"discount,omitempty"`

	// 결제 상태
	Status      string     `json:"status" gorm:"not null;size:20;index"`
	PaymentKey  string     `json:"payment_key,omitempty" gorm:"size:200"`
	FailCode    string     `json:"fail_code,omitempty" gorm:"size:100"`
	FailMessage string     `json:"fail_message,omitempty" gorm:"type:text"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// TableName 테이블명 지정
func (PaymentOrder) TableName() string {
	return "payment_order"
}
