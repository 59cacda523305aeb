package cart

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/cartsession"
	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
)

// CartHandler serves the session-scoped cart. The cart is a value loaded
// from the browsing session at the start of each request and saved back
// after mutation; it is not tied to a user account and dies with the
// session.
type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// GetCart materializes the cart against the current catalog. Entries for
// products that have been deleted since they were added simply vanish from
// the response.
func (h *CartHandler) GetCart(c echo.Context) error {
	ct := cartsession.Load(c)

	lines, total, count, err := ct.Materialize(h.DB)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cart_items": lines,
		"total":      total,
		"cart_count": count,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("add_to_cart_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	ct := cartsession.Load(c)
	count := ct.Add(product.ID, req.Quantity, product.Name, product.Price)
	if err := cartsession.Save(c, ct); err != nil {
		l.Error("add_to_cart_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save cart")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"productID": product.ID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    fmt.Sprintf("%s added to cart", product.Name),
		"cart_count": count,
	})
}

// UpdateCart replaces the quantity outright; zero or less removes the
// entry. Updating a product that is not in the cart reports not-found and
// leaves the cart untouched.
func (h *CartHandler) UpdateCart(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ct := cartsession.Load(c)
	count, err := ct.Update(uint(productID), req.Quantity)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"message": "Product not in cart",
		})
	}
	if err := cartsession.Save(c, ct); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save cart")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"productID": productID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"cart_count": count,
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	ct := cartsession.Load(c)
	count, err := ct.Remove(uint(productID))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"message": "Product not in cart",
		})
	}
	if err := cartsession.Save(c, ct); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save cart")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"productID": productID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"cart_count": count,
	})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ct := cartsession.Load(c)
	ct.Clear()
	if err := cartsession.Save(c, ct); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save cart")
	}

	h.publish(c, map[string]any{
		"type": "cart_cleared",
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"cart_count": 0,
	})
}
