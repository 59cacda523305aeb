package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/handlers/auth"
	"github.com/goldenfragrance/shop/internal/models"
)

type TokenService struct {
	DB            *gorm.DB
	RefreshSecret []byte
	JWTSecret     []byte
}

func (t *TokenService) RotateToken(rawToken string) (string, string, error) {
	claims, err := ValidateRefresh(rawToken, t.RefreshSecret, t.DB)
	if err != nil {
		return "", "", err
	}

	userID := uint(claims["sub"].(float64))
	role := claims["role"].(string)

	newAccess, err := SignAccessToken(userID, role, t.JWTSecret)
	if err != nil {
		return "", "", err
	}

	newRefresh, jti, err := SignRefreshToken(userID, role, t.RefreshSecret)
	if err != nil {
		return "", "", err
	}

	// Rotation: the old token is revoked before the new one is stored, so a
	// replayed refresh token fails validation.
	if err := t.DB.Model(&models.RefreshToken{}).
		Where("token = ?", HashToken(rawToken)).
		Update("revoked", true).Error; err != nil {
		return "", "", err
	}

	if err := SaveRefreshToken(t.DB, newRefresh, jti, userID, role); err != nil {
		return "", "", err
	}

	return newAccess, newRefresh, nil
}

// AutoRefreshMiddleware authenticates a request from the access cookie,
// transparently rotating an expired access token from the refresh token.
func (t *TokenService) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return t.autoRefresh(next, "")
}

// AutoRefreshMiddlewareAdmin additionally requires the admin role.
func (t *TokenService) AutoRefreshMiddlewareAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return t.autoRefresh(next, "admin")
}

func (t *TokenService) autoRefresh(next echo.HandlerFunc, requiredRole string) echo.HandlerFunc {
	return func(c echo.Context) error {
		asCookie, err := c.Cookie("accessToken")
		if err == nil {
			token, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
				return t.JWTSecret, nil
			})
			if err == nil && token.Valid {
				claims := token.Claims.(jwt.MapClaims)
				if err := requireRole(claims, requiredRole); err != nil {
					return err
				}
				setUserContext(c, claims)
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
		}

		rfCookie, err := c.Cookie("refreshToken")
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}
		newAccess, newRefresh, err := t.RotateToken(rfCookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
		}

		c.SetCookie(auth.CreateCookie("accessToken", newAccess, "/", time.Now().Add(15*time.Minute)))
		c.SetCookie(auth.CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(7*24*time.Hour)))

		token, _ := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
		claims := token.Claims.(jwt.MapClaims)
		if err := requireRole(claims, requiredRole); err != nil {
			return err
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func requireRole(claims jwt.MapClaims, requiredRole string) error {
	if requiredRole == "" {
		return nil
	}
	if role, _ := claims["role"].(string); role != requiredRole {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}
	return nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	c.Set("role", claims["role"].(string))
}
