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

	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
)

type WishlistHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *WishlistHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "wishlist_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *WishlistHandler) count(userID uint) int64 {
	var count int64
	h.DB.Model(&models.Wishlist{}).Where("user_id = ?", userID).Count(&count)
	return count
}

func (h *WishlistHandler) loadProduct(c echo.Context) (*models.Product, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &product, nil
}

// GetWishlist lists the user's wishlist with products and the total value.
func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	var items []models.Wishlist
	if err := h.DB.Where("user_id = ?", userID).Order("added_at DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	type entry struct {
		models.Wishlist
		Product models.Product `json:"product"`
	}

	entries := make([]entry, 0, len(items))
	var totalValue int64
	for _, item := range items {
		var product models.Product
		if err := h.DB.First(&product, item.ProductID).Error; err != nil {
			continue
		}
		entries = append(entries, entry{Wishlist: item, Product: product})
		totalValue += product.Price
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":       entries,
		"total_value": totalValue,
		"count":       len(entries),
	})
}

// Toggle is its own inverse: present -> removed, absent -> added. The
// response always reports the new aggregate count.
func (h *WishlistHandler) Toggle(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}

	var (
		action  string
		message string
	)

	var item models.Wishlist
	lookup := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item)
	if lookup.Error == nil {
		if err := h.DB.Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		action = "removed"
		message = fmt.Sprintf("%s removed from your wishlist", product.Name)
	} else if errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
		if err := h.DB.Create(&models.Wishlist{UserID: userID, ProductID: product.ID}).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		action = "added"
		message = fmt.Sprintf("%s added to your wishlist", product.Name)
	} else {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "wishlist_toggled",
		"userID":    userID,
		"productID": product.ID,
		"action":    action,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        message,
		"action":         action,
		"wishlist_count": h.count(userID),
	})
}

func (h *WishlistHandler) Add(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}

	var item models.Wishlist
	lookup := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item)
	if lookup.Error == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"success":        false,
			"message":        fmt.Sprintf("%s is already in your wishlist", product.Name),
			"action":         "exists",
			"wishlist_count": h.count(userID),
		})
	}
	if !errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Create(&models.Wishlist{UserID: userID, ProductID: product.ID}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "wishlist_added",
		"userID":    userID,
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        fmt.Sprintf("%s added to your wishlist", product.Name),
		"action":         "added",
		"wishlist_count": h.count(userID),
	})
}

func (h *WishlistHandler) Remove(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	product, err := h.loadProduct(c)
	if err != nil {
		return err
	}

	var item models.Wishlist
	if err := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, echo.Map{
				"success": false,
				"message": "Product not found in your wishlist",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "wishlist_removed",
		"userID":    userID,
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"message":        fmt.Sprintf("%s removed from your wishlist", product.Name),
		"action":         "removed",
		"wishlist_count": h.count(userID),
	})
}
