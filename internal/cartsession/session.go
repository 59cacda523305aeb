package cartsession

import (
	"encoding/json"

	"github.com/goldenfragrance/shop/internal/cart"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName = "gf_session"
	cartKey     = "cart"
)

// Load reads the cart blob out of the browsing session. A missing or
// corrupt blob yields an empty cart rather than an error: the cart is
// ephemeral state, not a system of record.
func Load(c echo.Context) cart.Cart {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return cart.New()
	}
	raw, ok := sess.Values[cartKey].(string)
	if !ok || raw == "" {
		return cart.New()
	}
	var ct cart.Cart
	if err := json.Unmarshal([]byte(raw), &ct); err != nil {
		return cart.New()
	}
	return ct
}

// Save writes the cart back into the session. Concurrent tabs race on this
// read-modify-write; last write wins, no locking at this scale.
func Save(c echo.Context, ct cart.Cart) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(ct)
	if err != nil {
		return err
	}
	sess.Values[cartKey] = string(raw)
	sess.Options.Path = "/"
	sess.Options.HttpOnly = true
	return sess.Save(c.Request(), c.Response())
}
