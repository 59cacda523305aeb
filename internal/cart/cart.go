package cart

import (
	"errors"
	"strconv"

	"github.com/goldenfragrance/shop/internal/models"
	"gorm.io/gorm"
)

var ErrNotInCart = errors.New("product not in cart")

// Item caches the display name and price as they were when the product was
// added. The cached values are informational; line totals are recomputed
// against the catalog on read.
type Item struct {
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
	Price    string `json:"price"`
}

// Cart is a plain value keyed by product id in string form. It carries no
// reference to any session machinery: the handler layer loads it at the
// start of a request and persists it back afterwards.
type Cart map[string]Item

func New() Cart {
	return Cart{}
}

// Add inserts the product or increments its quantity if already present.
// Returns the updated aggregate item count.
func (c Cart) Add(productID uint, quantity int, name string, price int64) int {
	if quantity < 1 {
		quantity = 1
	}
	key := strconv.FormatUint(uint64(productID), 10)
	if item, ok := c[key]; ok {
		item.Quantity += quantity
		c[key] = item
	} else {
		c[key] = Item{
			Quantity: quantity,
			Name:     name,
			Price:    strconv.FormatInt(price, 10),
		}
	}
	return c.Count()
}

// Update sets the quantity outright, removing the entry when quantity drops
// to zero or below. Unlike Add it replaces rather than increments.
func (c Cart) Update(productID uint, quantity int) (int, error) {
	key := strconv.FormatUint(uint64(productID), 10)
	item, ok := c[key]
	if !ok {
		return c.Count(), ErrNotInCart
	}
	if quantity <= 0 {
		delete(c, key)
	} else {
		item.Quantity = quantity
		c[key] = item
	}
	return c.Count(), nil
}

func (c Cart) Remove(productID uint) (int, error) {
	key := strconv.FormatUint(uint64(productID), 10)
	if _, ok := c[key]; !ok {
		return c.Count(), ErrNotInCart
	}
	delete(c, key)
	return c.Count(), nil
}

func (c Cart) Clear() {
	for key := range c {
		delete(c, key)
	}
}

// Count is the sum of quantities, not the number of distinct products.
func (c Cart) Count() int {
	count := 0
	for _, item := range c {
		count += item.Quantity
	}
	return count
}

type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Total    int64          `json:"total"`
}

// Materialize resolves every entry against the current catalog. Entries
// whose product no longer exists are silently dropped, not reported: a
// stale cart shrinks instead of erroring. Line totals use the current
// product price, not the cached one.
func (c Cart) Materialize(db *gorm.DB) ([]Line, int64, int, error) {
	lines := make([]Line, 0, len(c))
	var total int64
	count := 0

	for key, item := range c {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		var product models.Product
		if err := db.First(&product, uint(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, 0, 0, err
		}
		lineTotal := product.Price * int64(item.Quantity)
		lines = append(lines, Line{
			Product:  product,
			Quantity: item.Quantity,
			Total:    lineTotal,
		})
		total += lineTotal
		count += item.Quantity
	}

	return lines, total, count, nil
}
