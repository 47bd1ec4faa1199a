package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fortune-report-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponExists        = errors.New("coupon code already exists")
	ErrCouponInactive      = errors.New("coupon is inactive")
	ErrCouponExhausted     = errors.New("coupon is used up")
	ErrCouponNotApplicable = errors.New("coupon does not apply to this service")
)

// CheckCoupon reports why a coupon cannot be used for domain, or nil
func CheckCoupon(c *models.Coupon, domain string) error {
	switch {
	case !c.IsActive:
		return ErrCouponInactive
	case c.RemainingQuantity <= 0:
		return ErrCouponExhausted
	case !c.AppliesTo(domain):
		return ErrCouponNotApplicable
	}
	return nil
}

// CouponRepository persists coupons and their usage log
type CouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates a new repository
func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// Create 쿠폰 생성
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrCouponExists, coupon.Code)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// GetByCode 코드로 조회 (대소문자 무시)
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", models.NormalizeCouponCode(code)).Take(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// List 전체 쿠폰 (최신순)
func (r *CouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error
	return coupons, err
}

// SetActive 활성 상태 변경
func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) (*models.Coupon, error) {
	result := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ?", models.NormalizeCouponCode(code)).
		Update("is_active", active)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrCouponNotFound
	}
	return r.GetByCode(ctx, code)
}

// Redeem checks the coupon for usage.Domain, takes one from its remaining
// quantity and logs the usage, all in one transaction. The decrement is
// conditional, so concurrent redemptions never drive the quantity below zero.
func (r *CouponRepository) Redeem(ctx context.Context, code string, usage models.CouponUsage) (*models.Coupon, error) {
	var redeemed models.Coupon
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", models.NormalizeCouponCode(code)).
			Take(&redeemed).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCouponNotFound
			}
			return err
		}
		if err := CheckCoupon(&redeemed, usage.Domain); err != nil {
			return err
		}

		result := tx.Model(&models.Coupon{}).
			Where("id = ? AND remaining_quantity > 0", redeemed.ID).
			UpdateColumn("remaining_quantity", gorm.Expr("remaining_quantity - ?", 1))
		if result.Error != nil {
			return fmt.Errorf("failed to decrement coupon: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCouponExhausted
		}
		redeemed.RemainingQuantity--

		usage.CouponID = redeemed.ID
		usage.CouponCode = redeemed.Code
		if usage.UsedAt.IsZero() {
			usage.UsedAt = time.Now()
		}
		if err := tx.Create(&usage).Error; err != nil {
			return fmt.Errorf("failed to log coupon usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &redeemed, nil
}

// ListUsages 사용 내역 (최신순); 빈 코드는 전체
func (r *CouponRepository) ListUsages(ctx context.Context, code string) ([]models.CouponUsage, error) {
	query := r.db.WithContext(ctx).Order("used_at DESC")
	if code != "" {
		query = query.Where("coupon_code = ?", models.NormalizeCouponCode(code))
	}
	var usages []models.CouponUsage
	err := query.Find(&usages).Error
	return usages, err
}
