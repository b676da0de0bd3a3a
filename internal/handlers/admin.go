package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/services"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	accounts *services.AccountService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(accounts *services.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

type adminSetupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Setup creates or resets an administrator. Requires the X-Setup-Token header.
func (h *AdminHandler) Setup(c *fiber.Ctx) error {
	var req adminSetupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.accounts.SetupAdmin(c.UserContext(), c.Get("X-Setup-Token"), req.Email, req.Password); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Admin user setup completed successfully",
	})
}

// ListStores returns every store with its approval status.
func (h *AdminHandler) ListStores(c *fiber.Ctx) error {
	stores, err := h.accounts.ListStores(c.UserContext())
	if err != nil {
		return err
	}

	counts := map[string]int{}
	for _, s := range stores {
		counts[s.Status]++
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"data":     stores,
		"byStatus": counts,
	})
}

type storeDecisionRequest struct {
	StoreID string `json:"storeId"`
	Action  string `json:"action"`
}

// DecideStore approves, denies or revokes a store.
func (h *AdminHandler) DecideStore(c *fiber.Ctx) error {
	adminEmail, ok := middleware.CurrentAdminEmail(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req storeDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.StoreID == "" || req.Action == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	store, err := h.accounts.SetStoreStatus(c.UserContext(), req.StoreID, req.Action, adminEmail)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Store " + req.Action + "d successfully",
		"data":    store,
	})
}
