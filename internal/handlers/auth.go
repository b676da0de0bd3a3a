package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/services"
	"github.com/example/tapcart/internal/utils"
)

// AuthHandler serves store signup and the store and admin session endpoints.
type AuthHandler struct {
	accounts *services.AccountService
	sessions *middleware.Sessions
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *services.AccountService, sessions *middleware.Sessions) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type signupRequest struct {
	StoreID  string `json:"storeId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a store pending admin approval.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	store, err := h.accounts.SignupStore(c.UserContext(), req.StoreID, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration submitted for approval",
		"data":    store,
	})
}

type storeLoginRequest struct {
	StoreID  string `json:"storeId"`
	Password string `json:"password"`
}

// StoreLogin authenticates a store and sets the store session cookie.
func (h *AuthHandler) StoreLogin(c *fiber.Ctx) error {
	var req storeLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, err := h.accounts.LoginStore(c.UserContext(), req.StoreID, req.Password)
	if err != nil {
		return httpError(err)
	}

	h.sessions.Issue(c, utils.KindStore, token)
	return c.JSON(fiber.Map{"success": true})
}

// StoreLogout clears the store session cookie.
func (h *AuthHandler) StoreLogout(c *fiber.Ctx) error {
	h.sessions.Clear(c, utils.KindStore)
	return c.JSON(fiber.Map{"success": true})
}

// StoreSession reports the authenticated store.
func (h *AuthHandler) StoreSession(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"isAuthenticated": true,
		"storeId":         storeID,
	})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin authenticates an administrator and sets the admin session cookie.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, err := h.accounts.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	h.sessions.Issue(c, utils.KindAdmin, token)
	return c.JSON(fiber.Map{"success": true})
}

// AdminLogout clears the admin session cookie.
func (h *AuthHandler) AdminLogout(c *fiber.Ctx) error {
	h.sessions.Clear(c, utils.KindAdmin)
	return c.JSON(fiber.Map{"success": true})
}

// AdminSession reports the authenticated administrator.
func (h *AuthHandler) AdminSession(c *fiber.Ctx) error {
	email, ok := middleware.CurrentAdminEmail(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"isAuthenticated": true,
		"email":           email,
	})
}
