package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/services"
)

// CouponHandler serves store coupon management and the customer coupon preview.
type CouponHandler struct {
	engine *services.OrderEngine
}

// NewCouponHandler constructs CouponHandler.
func NewCouponHandler(engine *services.OrderEngine) *CouponHandler {
	return &CouponHandler{engine: engine}
}

// ListCoupons returns the store's coupons.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	coupons, err := h.engine.ListCoupons(c.UserContext(), storeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": coupons})
}

// CreateCoupon registers a coupon for the store.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req services.CouponInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	coupon, err := h.engine.CreateCoupon(c.UserContext(), storeID, req)
	if err != nil {
		return httpError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": coupon})
}

type applyCouponRequest struct {
	Code    string  `json:"code"`
	StoreID string  `json:"storeId"`
	Amount  float64 `json:"amount"`
}

// ApplyCoupon previews the discount a coupon grants without redeeming it.
func (h *CouponHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req applyCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	quote, err := h.engine.PreviewCoupon(c.UserContext(), req.Code, req.StoreID, req.Amount)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"discount": quote.Discount,
		"coupon":   quote,
	})
}
