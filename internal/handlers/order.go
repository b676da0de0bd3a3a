package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/services"
	"github.com/example/tapcart/internal/utils"
)

// OrderHandler serves the phone gate, checkout, bills and store order management.
type OrderHandler struct {
	engine *services.OrderEngine
	tokens *utils.TokenService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(engine *services.OrderEngine, tokens *utils.TokenService) *OrderHandler {
	return &OrderHandler{engine: engine, tokens: tokens}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

// SendOTP issues a verification code to the customer's phone.
func (h *OrderHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	issue, err := h.engine.SendOTP(c.UserContext(), req.Phone)
	if err != nil {
		if issue != nil && issue.Code != "" {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"error":   "failed to send OTP via SMS",
				"otp":     issue.Code,
			})
		}
		return httpError(err)
	}

	resp := fiber.Map{
		"success":    true,
		"message":    "OTP sent successfully",
		"expires_at": issue.ExpiresAt,
	}
	if issue.Code != "" {
		resp["otp"] = issue.Code
	}
	return c.JSON(resp)
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"otp"`
}

// VerifyOTP confirms the customer's phone number.
func (h *OrderHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.engine.VerifyOTP(c.UserContext(), req.Phone, req.Code); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"success": true, "verified": true})
}

// Checkout places a customer order.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Checkout(c.UserContext(), req)
	if err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order placed successfully",
		"orderId": result.Order.OrderID,
		"billUrl": result.BillURL,
		"data":    result.Order,
	})
}

// Bill renders an order invoice for a bill token holder or the owning store.
func (h *OrderHandler) Bill(c *fiber.Ctx) error {
	order, err := h.engine.GetOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return httpError(err)
	}

	session, _ := middleware.GetClaims(c)
	if !services.AuthorizeBill(h.tokens, order, c.Query("t"), session) {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	html, err := services.RenderBill(order)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "private, no-store")
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}

// ListOrders returns the store's orders with items, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.engine.ListOrders(c.UserContext(), storeID, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

type approveOrderRequest struct {
	OrderID string `json:"orderId"`
}

// ApproveOrder settles a pay-at-desk order.
func (h *OrderHandler) ApproveOrder(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req approveOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.engine.ApproveOrder(c.UserContext(), storeID, req.OrderID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order payment approved successfully",
		"data":    order,
	})
}
