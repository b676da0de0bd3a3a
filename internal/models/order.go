package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods accepted at checkout.
const (
	PaymentCard      = "card"
	PaymentUPI       = "upi"
	PaymentPayAtDesk = "pay_at_desk"
)

// Payment and order statuses. Both only ever move forward.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	OrderStatusPending     = "pending"
	OrderStatusConfirmed   = "confirmed"
)

type Order struct {
	BaseModel
	OrderID       string      `gorm:"size:50;uniqueIndex;not null" json:"order_id"`
	StoreID       string      `gorm:"size:50;index;not null" json:"store_id"`
	CustomerPhone string      `gorm:"size:20;not null" json:"customer_phone"`
	Subtotal      float64     `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Discount      float64     `gorm:"type:decimal(10,2);not null" json:"discount"`
	FinalAmount   float64     `gorm:"type:decimal(10,2);not null" json:"final_amount"`
	CouponCode    *string     `gorm:"size:50" json:"coupon_code,omitempty"`
	PaymentMethod string      `gorm:"size:20;not null" json:"payment_method"`
	PaymentStatus string      `gorm:"size:20;not null" json:"payment_status"`
	OrderStatus   string      `gorm:"size:20;not null" json:"order_status"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	ApprovedAt    *time.Time  `json:"approved_at,omitempty"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;references:OrderID" json:"items,omitempty"`
}

// IsSettled reports whether payment has been confirmed.
func (o *Order) IsSettled() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

type OrderItem struct {
	BaseModel
	OrderID     string    `gorm:"size:50;index;not null" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string    `gorm:"size:255;not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal   float64   `gorm:"type:decimal(10,2);not null" json:"line_total"`
}
