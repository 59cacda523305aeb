package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

// SubmitReview upserts the (user, product) review: a second submission
// overwrites rating and comment instead of adding a row. An out-of-range
// rating is rejected, never clamped.
func (h *ReviewHandler) SubmitReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.submit")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("submit_review_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		l.Warn("submit_review_failed", "status", 400, "reason", "rating_out_of_range", "rating", req.Rating)
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var review models.Review
	lookup := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&review)
	switch {
	case lookup.Error == nil:
		review.Rating = req.Rating
		review.Comment = req.Comment
		if err := h.DB.Save(&review).Error; err != nil {
			l.Error("submit_review_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		l.Info("review_updated", "productID", product.ID)
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "Review updated successfully",
			"review":  review,
		})
	case errors.Is(lookup.Error, gorm.ErrRecordNotFound):
		review = models.Review{
			UserID:    userID,
			ProductID: product.ID,
			Rating:    req.Rating,
			Comment:   req.Comment,
		}
		if err := h.DB.Create(&review).Error; err != nil {
			l.Error("submit_review_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		l.Info("review_created", "productID", product.ID)
		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"message": "Review added successfully",
			"review":  review,
		})
	default:
		l.Error("submit_review_failed", "status", 500, "reason", "db_error", "error", lookup.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// GetReviews lists reviews for a product.
func (h *ReviewHandler) GetReviews(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", productID).Order("updated_at DESC").Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, reviews)
}
