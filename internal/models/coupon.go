package models

import (
	"strings"
	"time"
)

// Coupon discount types
const (
	CouponDiscountFree   = "free"   // unlocks the report without payment
	CouponDiscountAmount = "amount" // lowers the order amount
)

// CouponServiceAll makes a coupon valid for every domain
const CouponServiceAll = "all"

// CouponMinimumAmount is the lowest amount a discount can bring an order to
const CouponMinimumAmount = 100

// Coupon is a redeemable code with a limited quantity
type Coupon struct {
	BaseModel

	// 쿠폰 정보
	Code string `json:"code" gorm:"not null;size:64;uniqueIndex"`
	Name string `json:"name" gorm:"size:200"`

	// 적용 대상: 도메인 이름 또는 "all"
	ServiceType string `json:"service_type" gorm:"not null;size:32"`

	DiscountType   string `json:"discount_type" gorm:"not null;size:20"`
	DiscountAmount int    `json:"discount_amount"`

	// 수량
	TotalQuantity     int  `json:"total_quantity"`
	RemainingQuantity int  `json:"remaining_quantity"`
	IsActive          bool `json:"is_active"`
}

// TableName 테이블명 지정
func (Coupon) TableName() string {
	return "coupon"
}

// IsFree reports whether the coupon unlocks without payment
func (c *Coupon) IsFree() bool {
	return c.DiscountType == CouponDiscountFree
}

// AppliesTo reports whether the coupon can be used for the domain
func (c *Coupon) AppliesTo(domain string) bool {
	return c.ServiceType == CouponServiceAll || c.ServiceType == domain
}

// Apply returns the amount to charge for price after the coupon
func (c *Coupon) Apply(price int) int {
	if c.IsFree() {
		return 0
	}
	amount := price - c.DiscountAmount
	if amount < CouponMinimumAmount {
		amount = CouponMinimumAmount
	}
	return amount
}

// NormalizeCouponCode makes code lookups case-insensitive
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponUsage logs one redemption
type CouponUsage struct {
	BaseModel

	CouponID   uint   `json:"coupon_id" gorm:"index"`
	CouponCode string `json:"coupon_code" gorm:"not null;size:64;index"`

	// 사용 대상
	Domain     string `json:"domain" gorm:"size:32"`
	RecordID   string `json:"record_id" gorm:"size:64"`
	ReportType string `json:"report_type" gorm:"size:32"`
	OrderID    string `json:"order_id,omitempty" gorm:"size:64"`

	UsedAt time.Time `json:"used_at" gorm:"index"`
}

// TableName 테이블명 지정
func (CouponUsage) TableName() string {
	return "coupon_usage"
}
