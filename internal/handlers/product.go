package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
	"github.com/goldenfragrance/shop/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type productView struct {
	models.Product
	IsOnSale      bool    `json:"is_on_sale"`
	AverageRating float64 `json:"average_rating"`
}

// defaultRating is shown for products without a single review yet.
const defaultRating = 4.5

func (h *ProductHandler) view(p models.Product) productView {
	rating := defaultRating
	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", p.ID).Find(&reviews).Error; err == nil && len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		rating = float64(sum) / float64(len(reviews))
	}
	return productView{Product: p, IsOnSale: p.IsOnSale(), AverageRating: rating}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("get_product_failed", "status", 400, "reason", "id is not integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("get_product_failed", "status", 404, "reason", "not_found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var related []models.Product
	if err := h.DB.Where("category_id = ? AND id <> ?", product.CategoryID, product.ID).
		Limit(4).Find(&related).Error; err != nil {
		l.Error("get_product_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"product":          h.view(product),
		"related_products": related,
	})
}

// GetProducts lists the catalog with optional q/category/collection filters
// plus the usual pagination envelope.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), 0)
	offset, limit := util.Calculate(page, size)

	query := h.DB.Model(&models.Product{})
	if q := c.QueryParam("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if categoryID := c.QueryParam("category"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if collectionID := c.QueryParam("collection"); collectionID != "" {
		query = query.Where("collection_id = ?", collectionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error("get_products_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Product
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		l.Error("get_products_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// Home serves the storefront landing data: featured products and the top
// categories.
func (h *ProductHandler) Home(c echo.Context) error {
	var featured []models.Product
	if err := h.DB.Where("is_featured = ?", true).Limit(4).Find(&featured).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var categories []models.Category
	if err := h.DB.Limit(3).Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var totalProducts int64
	h.DB.Model(&models.Product{}).Count(&totalProducts)

	return c.JSON(http.StatusOK, echo.Map{
		"featured_products": featured,
		"categories":        categories,
		"total_products":    totalProducts,
	})
}

func (h *ProductHandler) GetCategories(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCollections lists active collections only.
func (h *ProductHandler) GetCollections(c echo.Context) error {
	var collections []models.Collection
	if err := h.DB.Where("is_active = ?", true).Order("name ASC").Find(&collections).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, collections)
}

type productRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"original_price"`
	Image         string `json:"image"`
	CategoryID    uint   `json:"category_id"`
	CollectionID  *uint  `json:"collection_id"`
	IsNew         bool   `json:"is_new"`
	IsFeatured    bool   `json:"is_featured"`
	StockQuantity int    `json:"stock_quantity"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req productRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}

	prod := models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Image:         req.Image,
		CategoryID:    req.CategoryID,
		CollectionID:  req.CollectionID,
		IsNew:         req.IsNew,
		IsFeatured:    req.IsFeatured,
		StockQuantity: req.StockQuantity,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		l.Error("create_product_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.OriginalPrice = req.OriginalPrice
	prod.Image = req.Image
	prod.CategoryID = req.CategoryID
	prod.CollectionID = req.CollectionID
	prod.IsNew = req.IsNew
	prod.IsFeatured = req.IsFeatured
	prod.StockQuantity = req.StockQuantity

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}
	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	category := models.Category{Name: req.Name, Description: req.Description, Image: req.Image}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *ProductHandler) CreateCollection(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		IsActive    *bool  `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	collection := models.Collection{Name: req.Name, Description: req.Description, Image: req.Image, IsActive: true}
	if req.IsActive != nil {
		collection.IsActive = *req.IsActive
	}
	if err := h.DB.Create(&collection).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, collection)
}
