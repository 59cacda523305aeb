package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
)

func newProductHandler(t *testing.T) *ProductHandler {
	return &ProductHandler{DB: initTestDB(t), Producer: &mykafka.Producer{}}
}

func TestGetProduct(t *testing.T) {
	h := newProductHandler(t)

	product := models.Product{Name: "Amber Noir", Description: "d", Price: 950, CategoryID: 1}
	require.NoError(t, h.DB.Create(&product).Error)
	related := models.Product{Name: "Velvet Rose", Description: "d", Price: 1250, CategoryID: 1}
	require.NoError(t, h.DB.Create(&related).Error)
	other := models.Product{Name: "Citrus Sky", Description: "d", Price: 700, CategoryID: 2}
	require.NoError(t, h.DB.Create(&other).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodGet, "/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Product struct {
			models.Product
			IsOnSale      bool    `json:"is_on_sale"`
			AverageRating float64 `json:"average_rating"`
		} `json:"product"`
		RelatedProducts []models.Product `json:"related_products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Amber Noir", resp.Product.Name)
	require.Equal(t, defaultRating, resp.Product.AverageRating)

	// Related products share the category, never the product itself.
	require.Len(t, resp.RelatedProducts, 1)
	require.Equal(t, "Velvet Rose", resp.RelatedProducts[0].Name)
}

func TestGetProductAverageRating(t *testing.T) {
	h := newProductHandler(t)

	product := models.Product{Name: "Amber Noir", Description: "d", Price: 950, CategoryID: 1}
	require.NoError(t, h.DB.Create(&product).Error)
	require.NoError(t, h.DB.Create(&models.Review{UserID: 1, ProductID: product.ID, Rating: 5}).Error)
	require.NoError(t, h.DB.Create(&models.Review{UserID: 2, ProductID: product.ID, Rating: 2}).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodGet, "/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetProduct(c))

	var resp struct {
		Product struct {
			AverageRating float64 `json:"average_rating"`
		} `json:"product"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.InDelta(t, 3.5, resp.Product.AverageRating, 0.001)
}

func TestGetProductNotFound(t *testing.T) {
	h := newProductHandler(t)

	e := echo.New()
	_, c := jsonContext(t, e, http.MethodGet, "/products/42", nil)
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := h.GetProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProductsFiltersAndPaginates(t *testing.T) {
	h := newProductHandler(t)

	for i := 0; i < 12; i++ {
		p := models.Product{Name: "Scent", Description: "d", Price: 100, CategoryID: 1}
		if i >= 10 {
			p.CategoryID = 2
		}
		require.NoError(t, h.DB.Create(&p).Error)
	}

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodGet, "/products?category=1&page=1&size=5", nil)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasNext    bool  `json:"has_next"`
			HasPrev    bool  `json:"has_prev"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 5)
	require.EqualValues(t, 10, resp.Meta.Total)
	require.EqualValues(t, 2, resp.Meta.TotalPages)
	require.True(t, resp.Meta.HasNext)
	require.False(t, resp.Meta.HasPrev)
}

func TestHome(t *testing.T) {
	h := newProductHandler(t)

	for i := 0; i < 6; i++ {
		p := models.Product{Name: "Scent", Description: "d", Price: 100, CategoryID: 1, IsFeatured: i < 5}
		require.NoError(t, h.DB.Create(&p).Error)
	}
	require.NoError(t, h.DB.Create(&models.Category{Name: "Floral"}).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodGet, "/home", nil)
	require.NoError(t, h.Home(c))

	var resp struct {
		Featured      []models.Product  `json:"featured_products"`
		Categories    []models.Category `json:"categories"`
		TotalProducts int64             `json:"total_products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Featured, 4)
	require.Len(t, resp.Categories, 1)
	require.EqualValues(t, 6, resp.TotalProducts)
}

func TestGetCollectionsActiveOnly(t *testing.T) {
	h := newProductHandler(t)

	require.NoError(t, h.DB.Create(&models.Collection{Name: "Summer", IsActive: true}).Error)
	inactive := models.Collection{Name: "Archive"}
	require.NoError(t, h.DB.Create(&inactive).Error)
	require.NoError(t, h.DB.Model(&inactive).Update("is_active", false).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodGet, "/collections", nil)
	require.NoError(t, h.GetCollections(c))

	var collections []models.Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collections))
	require.Len(t, collections, 1)
	require.Equal(t, "Summer", collections[0].Name)
}

func TestCreateProduct(t *testing.T) {
	h := newProductHandler(t)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/admin/products", map[string]interface{}{
		"name":        "Amber Noir",
		"description": "woody amber",
		"price":       950,
		"category_id": 1,
	})
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
	require.NotZero(t, prod.ID)
	require.EqualValues(t, 950, prod.Price)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	h := newProductHandler(t)

	e := echo.New()
	_, c := jsonContext(t, e, http.MethodPost, "/admin/products", map[string]interface{}{
		"name":        "Amber Noir",
		"description": "woody amber",
		"price":       -1,
		"category_id": 1,
	})
	err := h.CreateProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestPatchProduct(t *testing.T) {
	h := newProductHandler(t)

	product := models.Product{Name: "Amber Noir", Description: "d", Price: 950, CategoryID: 1}
	require.NoError(t, h.DB.Create(&product).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPatch, "/admin/products/1", map[string]interface{}{
		"name":        "Amber Noir Intense",
		"description": "d",
		"price":       1100,
		"category_id": 1,
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Product
	require.NoError(t, h.DB.First(&stored, product.ID).Error)
	require.Equal(t, "Amber Noir Intense", stored.Name)
	require.EqualValues(t, 1100, stored.Price)
}

func TestDeleteProduct(t *testing.T) {
	h := newProductHandler(t)

	product := models.Product{Name: "Amber Noir", Description: "d", Price: 950, CategoryID: 1}
	require.NoError(t, h.DB.Create(&product).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodDelete, "/admin/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	h.DB.Model(&models.Product{}).Count(&count)
	require.Zero(t, count)
}
