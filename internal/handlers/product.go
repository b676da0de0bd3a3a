package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/middleware"
	"github.com/example/tapcart/internal/models"
)

const maxBatchQuantity = 500

var trailingNumber = regexp.MustCompile(`^(.*?)(\d+)$`)

// ProductHandler manages store inventory and the customer product lookup.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

type categoryCount struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	TotalStock int64  `json:"total_stock"`
}

// ListProducts returns the store's products with per-category totals.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.db.WithContext(c.UserContext()).Model(&models.Product{}).Where("store_id = ?", storeID)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []models.Product
	if err := query.Order("created_at desc").Find(&products).Error; err != nil {
		return err
	}

	var counts []categoryCount
	if err := h.db.WithContext(c.UserContext()).Model(&models.Product{}).
		Select("category, count(*) as count, coalesce(sum(stock), 0) as total_stock").
		Where("store_id = ?", storeID).
		Group("category").
		Order("category").
		Scan(&counts).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"data":           products,
		"categoryCounts": counts,
	})
}

type productRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	CustomID string   `json:"customId"`
	Price    *float64 `json:"price"`
	Stock    *int     `json:"stock"`
	Quantity int      `json:"quantity"`
}

// CreateProduct adds inventory. A quantity above one creates that many single-unit
// products with sequential custom IDs; otherwise one product with the given stock.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.CustomID = strings.TrimSpace(req.CustomID)
	if req.Name == "" || req.CustomID == "" || req.Price == nil || *req.Price < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name, customId and a non-negative price are required")
	}
	if req.Quantity < 0 || req.Quantity > maxBatchQuantity {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("quantity must be between 1 and %d", maxBatchQuantity))
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "General"
	}

	stock := 1
	if req.Stock != nil {
		stock = *req.Stock
	}
	if stock < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "stock cannot be negative")
	}

	ids := []string{req.CustomID}
	if req.Quantity > 1 {
		ids = sequentialIDs(req.CustomID, req.Quantity)
		stock = 1
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		customID := id
		products = append(products, models.Product{
			StoreID:  storeID,
			CustomID: &customID,
			Name:     req.Name,
			Category: category,
			Price:    *req.Price,
			Stock:    stock,
		})
	}

	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).
			Where("store_id = ? AND custom_id IN ?", storeID, ids).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "custom ID already exists")
		}
		return tx.Create(&products).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fiber.NewError(fiber.StatusConflict, "custom ID already exists")
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": products})
}

type productUpdateRequest struct {
	ID       string   `json:"id"`
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	CustomID *string  `json:"customId"`
	Price    *float64 `json:"price"`
	Stock    *int     `json:"stock"`
}

// UpdateProduct patches the given fields of a store product.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req productUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	updates := map[string]any{}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			updates["name"] = name
		}
	}
	if req.Category != nil {
		if category := strings.TrimSpace(*req.Category); category != "" {
			updates["category"] = category
		}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock cannot be negative")
		}
		updates["stock"] = *req.Stock
	}

	db := h.db.WithContext(c.UserContext())
	if req.CustomID != nil {
		customID := strings.TrimSpace(*req.CustomID)
		if customID != "" {
			var count int64
			if err := db.Model(&models.Product{}).
				Where("store_id = ? AND custom_id = ? AND id <> ?", storeID, customID, id).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "custom ID already exists")
			}
			updates["custom_id"] = customID
		}
	}

	var product models.Product
	if err := db.Where("id = ? AND store_id = ?", id, storeID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	if len(updates) > 0 {
		if err := db.Model(&product).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "custom ID already exists")
			}
			return err
		}
		if err := db.First(&product, "id = ?", id).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productDeleteRequest struct {
	ID string `json:"id"`
}

// DeleteProduct removes a store product.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	storeID, ok := middleware.CurrentStoreID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req productDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.WithContext(c.UserContext()).Where("id = ? AND store_id = ?", id, storeID).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// LookupProduct finds an in-stock product by id or custom id for the customer cart.
func (h *ProductHandler) LookupProduct(c *fiber.Ctx) error {
	productID := strings.TrimSpace(c.Query("productId"))
	storeID := strings.TrimSpace(c.Query("storeId"))
	if productID == "" || storeID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "product ID and store ID are required")
	}

	query := h.db.WithContext(c.UserContext()).Where("store_id = ?", storeID)
	if id, err := uuid.Parse(productID); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("custom_id = ?", productID)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound,
				fmt.Sprintf("product %q not found in store %q", productID, storeID))
		}
		return err
	}
	if product.Stock <= 0 {
		return fiber.NewError(fiber.StatusNotFound, "product is out of stock")
	}

	return c.JSON(fiber.Map{"success": true, "product": product})
}

// sequentialIDs continues a trailing number in base, or appends a two-digit counter.
func sequentialIDs(base string, n int) []string {
	ids := make([]string, 0, n)
	if m := trailingNumber.FindStringSubmatch(base); m != nil {
		start, err := strconv.Atoi(m[2])
		if err == nil {
			for i := 0; i < n; i++ {
				ids = append(ids, fmt.Sprintf("%s%0*d", m[1], len(m[2]), start+i))
			}
			return ids
		}
	}
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("%s%02d", base, i))
	}
	return ids
}
