package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// CheckoutAttempt records one run of the checkout sequence. Rows that end
// failed after the order was created are flagged as orphaned unpaid orders
// for backend reconciliation.
type CheckoutAttempt struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ShopperID           string             `gorm:"column:shopper_id;not null"`
	Status              string             `gorm:"column:status;not null"`
	FailedPhase         *string            `gorm:"column:failed_phase"`
	ErrorCode           *string            `gorm:"column:error_code"`
	ErrorMessage        *string            `gorm:"column:error_message"`
	OrderID             *string            `gorm:"column:order_id"`
	OrderNumber         *string            `gorm:"column:order_number"`
	PaymentIntentID     *string            `gorm:"column:payment_intent_id"`
	DerivedTotal        decimal.Decimal    `gorm:"column:derived_total;type:numeric(12,2);not null"`
	ShippingInfo        types.ShippingInfo `gorm:"column:shipping_info;type:jsonb"`
	OrphanedUnpaidOrder bool               `gorm:"column:orphaned_unpaid_order;not null;default:false"`
	StartedAt           time.Time          `gorm:"column:started_at;not null"`
	CompletedAt         *time.Time         `gorm:"column:completed_at"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}
