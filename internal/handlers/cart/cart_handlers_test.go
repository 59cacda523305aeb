package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
)

// cartEnv runs the cart routes behind the real session middleware and
// carries the session cookie across requests, like a browser would.
type cartEnv struct {
	T       *testing.T
	E       *echo.Echo
	DB      *gorm.DB
	cookies []*http.Cookie
}

func newCartEnv(t *testing.T) *cartEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	h := &CartHandler{DB: db, Producer: &mykafka.Producer{}}

	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test_session_secret"))))
	e.GET("/cart", h.GetCart)
	e.POST("/cart/add/:id", h.AddToCart)
	e.POST("/cart/update/:id", h.UpdateCart)
	e.POST("/cart/remove/:id", h.RemoveFromCart)
	e.POST("/cart/clear", h.ClearCart)

	return &cartEnv{T: t, E: e, DB: db}
}

func (env *cartEnv) do(method, path string, body interface{}) (int, map[string]interface{}) {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range env.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)

	if set := rec.Result().Cookies(); len(set) > 0 {
		env.cookies = set
	}

	var resp map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func (env *cartEnv) seedProduct(name string, price int64) models.Product {
	product := models.Product{Name: name, Description: "d", Price: price, CategoryID: 1}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return product
}

func TestAddToCart(t *testing.T) {
	env := newCartEnv(t)
	product := env.seedProduct("Amber Noir", 950)

	code, resp := env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
	require.EqualValues(t, 2, resp["cart_count"])
	require.Contains(t, resp["message"], product.Name)

	// Adding again increments instead of replacing.
	code, resp = env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 5, resp["cart_count"])
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newCartEnv(t)

	code, _ := env.do(http.MethodPost, "/cart/add/42", map[string]int{"quantity": 1})
	require.Equal(t, http.StatusNotFound, code)
}

func TestGetCartMaterializes(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)
	env.seedProduct("Velvet Rose", 1250)

	env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 2})
	env.do(http.MethodPost, "/cart/add/2", map[string]int{"quantity": 1})

	code, resp := env.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 3150, resp["total"])
	require.EqualValues(t, 3, resp["cart_count"])
	require.Len(t, resp["cart_items"], 2)
}

func TestGetCartDropsDeletedProduct(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)
	env.seedProduct("Velvet Rose", 1250)

	env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 1})
	env.do(http.MethodPost, "/cart/add/2", map[string]int{"quantity": 1})

	require.NoError(t, env.DB.Delete(&models.Product{}, 2).Error)

	code, resp := env.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 950, resp["total"])
	require.EqualValues(t, 1, resp["cart_count"])
	require.Len(t, resp["cart_items"], 1)
}

func TestUpdateCart(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)

	env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 4})

	code, resp := env.do(http.MethodPost, "/cart/update/1", map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
	require.EqualValues(t, 2, resp["cart_count"])

	// Quantity zero removes the line.
	_, resp = env.do(http.MethodPost, "/cart/update/1", map[string]int{"quantity": 0})
	require.EqualValues(t, 0, resp["cart_count"])
}

func TestUpdateCartNotInCart(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)

	code, resp := env.do(http.MethodPost, "/cart/update/1", map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, resp["success"])
	require.Equal(t, "Product not in cart", resp["message"])
}

func TestRemoveFromCart(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)

	env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 2})

	code, resp := env.do(http.MethodPost, "/cart/remove/1", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, resp["success"])
	require.EqualValues(t, 0, resp["cart_count"])

	_, resp = env.do(http.MethodPost, "/cart/remove/1", nil)
	require.Equal(t, false, resp["success"])
}

func TestClearCart(t *testing.T) {
	env := newCartEnv(t)
	env.seedProduct("Amber Noir", 950)
	env.seedProduct("Velvet Rose", 1250)

	env.do(http.MethodPost, "/cart/add/1", map[string]int{"quantity": 2})
	env.do(http.MethodPost, "/cart/add/2", map[string]int{"quantity": 1})

	code, resp := env.do(http.MethodPost, "/cart/clear", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 0, resp["cart_count"])

	_, resp = env.do(http.MethodGet, "/cart", nil)
	require.EqualValues(t, 0, resp["cart_count"])
}
