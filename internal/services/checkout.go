package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/logger"
	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

// CartLine is one product and quantity submitted at checkout.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is a customer order submission. Discount and TotalAmount are
// the client's own figures and are only compared against the server's.
type CheckoutRequest struct {
	Phone         string     `json:"phone"`
	StoreID       string     `json:"storeId"`
	PaymentMethod string     `json:"paymentMethod"`
	CouponCode    string     `json:"couponCode"`
	Cart          []CartLine `json:"cart"`
	Discount      *float64   `json:"discount"`
	TotalAmount   *float64   `json:"totalAmount"`
}

// CheckoutResult is a committed order and its relative bill link.
type CheckoutResult struct {
	Order   *models.Order
	BillURL string
}

type cartLine struct {
	productID uuid.UUID
	quantity  int
}

// Checkout prices and persists an order. Card and UPI orders settle in the same transaction.
func (e *OrderEngine) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return nil, ErrValidation("store ID is required")
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	switch method {
	case models.PaymentCard, models.PaymentUPI, models.PaymentPayAtDesk:
	default:
		return nil, ErrValidation("payment method must be card, upi or pay_at_desk")
	}
	lines, err := mergeCart(req.Cart)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)

	verified, err := phoneVerified(db, phone)
	if err != nil {
		return nil, err
	}
	if !verified {
		e.countRejection("unverified_phone")
		return nil, ErrUnauthorized("please verify your phone number with OTP first")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.productID)
	}
	var products []models.Product
	if err := db.Where("id IN ? AND store_id = ?", ids, storeID).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	if len(products) != len(lines) {
		e.countRejection("unknown_product")
		return nil, ErrValidation("some products are not available")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := e.now().UTC()
	orderID, err := newOrderID(now)
	if err != nil {
		return nil, err
	}

	var subtotal float64
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := byID[line.productID]
		if p.Stock < line.quantity {
			e.countRejection("insufficient_stock")
			return nil, ErrValidation("insufficient stock for %s", p.Name)
		}
		lineTotal := round2(p.Price * float64(line.quantity))
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.quantity,
			UnitPrice:   p.Price,
			LineTotal:   lineTotal,
		})
	}
	subtotal = round2(subtotal)

	var (
		discount   float64
		couponCode *string
	)
	if code := normalizeCouponCode(req.CouponCode); code != "" {
		coupon, err := findActiveCoupon(db, storeID, code)
		if err != nil {
			e.countRejection("coupon")
			return nil, err
		}
		if discount, err = checkCoupon(coupon, subtotal, now); err != nil {
			e.countRejection("coupon")
			return nil, err
		}
		couponCode = &coupon.Code
	}
	final := round2(subtotal - discount)

	if pricingDiffers(req.Discount, discount) || pricingDiffers(req.TotalAmount, final) {
		e.log.Info("Client pricing differs from server pricing",
			zap.String("order_id", orderID),
			zap.Float64("discount", discount),
			zap.Float64("final_amount", final),
			zap.Float64p("client_discount", req.Discount),
			zap.Float64p("client_total", req.TotalAmount))
	}

	order := models.Order{
		OrderID:       orderID,
		StoreID:       storeID,
		CustomerPhone: phone,
		Subtotal:      subtotal,
		Discount:      discount,
		FinalAmount:   final,
		CouponCode:    couponCode,
		PaymentMethod: method,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
		Items:         items,
	}
	instant := method != models.PaymentPayAtDesk
	if instant {
		order.PaymentStatus = models.PaymentStatusCompleted
		order.OrderStatus = models.OrderStatusConfirmed
		order.PaidAt = &now
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if instant {
			return applySettlement(tx, &order)
		}
		return nil
	})
	if err != nil {
		if IsKind(err, KindConflict) {
			e.countRejection("settlement_conflict")
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.OrdersCreated.WithLabelValues(method).Inc()
	}
	if instant {
		e.countSettled("checkout")
	}
	e.log.Info("Order placed",
		zap.String("order_id", order.OrderID),
		zap.String("store_id", storeID),
		zap.String("payment_method", method),
		zap.String("phone", logger.MaskPhone(phone)))

	bill := e.notify(ctx, &order, "order_confirmation", func(link string) string {
		return checkoutMessage(&order, link)
	})
	return &CheckoutResult{Order: &order, BillURL: bill}, nil
}

// ApproveOrder settles a pay-at-desk order owned by storeID.
func (e *OrderEngine) ApproveOrder(ctx context.Context, storeID, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrValidation("order ID is required")
	}

	var order models.Order
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items").Where("order_id = ? AND store_id = ?", orderID, storeID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("order not found")
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order.PaymentMethod != models.PaymentPayAtDesk {
			return ErrConflict("this order is not a pay-at-desk order")
		}
		if order.IsSettled() {
			return ErrConflict("order already paid")
		}

		now := e.now().UTC()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, models.PaymentStatusPending).
			Updates(map[string]any{
				"payment_status": models.PaymentStatusCompleted,
				"order_status":   models.OrderStatusConfirmed,
				"paid_at":        now,
				"approved_at":    now,
			})
		if res.Error != nil {
			return fmt.Errorf("approve order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict("order already paid")
		}
		order.PaymentStatus = models.PaymentStatusCompleted
		order.OrderStatus = models.OrderStatusConfirmed
		order.PaidAt = &now
		order.ApprovedAt = &now

		return applySettlement(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	e.countSettled("desk_approval")
	e.log.Info("Order approved", zap.String("order_id", order.OrderID), zap.String("store_id", storeID))

	e.notify(ctx, &order, "payment_confirmation", func(link string) string {
		return fmt.Sprintf("Payment received for order %s. Download your bill: %s", order.OrderID, link)
	})
	return &order, nil
}

// applySettlement decrements stock and redeems the coupon with conditional updates.
// Any update that matches no row aborts the surrounding transaction.
func applySettlement(tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND store_id = ? AND stock >= ?", item.ProductID, order.StoreID, item.Quantity).
			Update("stock", gorm.Expr("stock - ?", item.Quantity))
		if res.Error != nil {
			return fmt.Errorf("decrement stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict("insufficient stock for %s", item.ProductName)
		}
	}

	if order.CouponCode == nil {
		return nil
	}
	res := tx.Model(&models.Coupon{}).
		Where("store_id = ? AND code = ? AND (usage_limit IS NULL OR used_count < usage_limit)",
			order.StoreID, *order.CouponCode).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("redeem coupon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict("coupon usage limit reached")
	}
	return nil
}

// ListOrders returns a page of orders for storeID with their items, newest first.
func (e *OrderEngine) ListOrders(ctx context.Context, storeID string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.Order{}).Where("store_id = ?", storeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder loads an order with its items.
func (e *OrderEngine) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

func mergeCart(cart []CartLine) ([]cartLine, error) {
	if len(cart) == 0 {
		return nil, ErrValidation("cart is empty")
	}
	index := make(map[uuid.UUID]int, len(cart))
	lines := make([]cartLine, 0, len(cart))
	for _, item := range cart {
		id, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, ErrValidation("invalid product id %q", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, ErrValidation("quantity must be at least 1")
		}
		if i, ok := index[id]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, cartLine{productID: id, quantity: item.Quantity})
	}
	return lines, nil
}

func pricingDiffers(client *float64, server float64) bool {
	return client != nil && math.Abs(*client-server) >= 0.005
}

func newOrderID(now time.Time) (string, error) {
	suffix, err := randomDigits(6)
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return fmt.Sprintf("ORD%d%s", now.UnixMilli(), suffix), nil
}

func checkoutMessage(order *models.Order, link string) string {
	if order.PaymentMethod == models.PaymentPayAtDesk {
		return fmt.Sprintf("Your order %s has been placed. Please pay at the desk. Download your bill: %s", order.OrderID, link)
	}
	return fmt.Sprintf("Your order %s has been confirmed. Download your bill: %s", order.OrderID, link)
}
