package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/hash"
	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/models"
	"github.com/goldenfragrance/shop/internal/mykafka"
)

type AuthHandler struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Producer      *mykafka.Producer
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`

	FullName   string `json:"full_name"`
	Age        *int   `json:"age"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Register creates the user and, deliberately as a second explicit step,
// the profile. Profiles are never created by a side effect of saving a
// user.
func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		l.Warn("register_failed", "status", 400, "reason", "missing_fields")
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}

	var existing models.User
	if err := h.DB.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("register_error", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	} else {
		l.Warn("register_failed", "status", 409, "reason", "user_exists")
		return echo.NewHTTPError(http.StatusConflict, "username or email already taken")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot hash the password")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	profile := models.UserProfile{
		UserID:     user.ID,
		FullName:   req.FullName,
		Age:        req.Age,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}
	if err := h.DB.Create(&profile).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "profile_db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"UserID":   user.ID,
		"username": user.Username,
	})

	l.Info("register_success", "status", 200)
	return c.JSON(http.StatusOK, echo.Map{
		"id": user.ID, "username": user.Username, "email": user.Email, "role": user.Role,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}

	accessExp := time.Now().Add(15 * time.Minute)
	accessClaims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  accessExp.Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(h.JWTSecret)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}

	jti := newJTI()
	refreshExp := time.Now().Add(7 * 24 * time.Hour)
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  refreshExp.Unix(),
		"typ":  "refresh",
		"jti":  jti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(h.RefreshSecret)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}

	refreshModel := models.RefreshToken{
		Role:      user.Role,
		Token:     sha256Hex(refreshToken),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
		Revoked:   false,
	}
	if err := h.DB.Create(&refreshModel).Error; err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot add token to db", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(CreateCookie("accessToken", accessToken, "/", accessExp))
	c.SetCookie(CreateCookie("refreshToken", refreshToken, "/", refreshExp))

	h.publish(c, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"UserID":   user.ID,
		"username": user.Username,
	})

	l.Info("login_successful")
	return c.JSON(http.StatusOK, echo.Map{
		"is_admin": user.Role == "admin",
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if refreshCookie, err := c.Cookie("refreshToken"); err == nil {
		result := h.DB.Model(&models.RefreshToken{}).
			Where("token = ?", sha256Hex(refreshCookie.Value)).
			Update("revoked", true)
		if result.Error != nil {
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", result.Error)
		}
	} else {
		l.Warn("logout_without_refresh_cookie", "error", err)
	}

	c.SetCookie(DeleteCookie("refreshToken", "/"))
	c.SetCookie(DeleteCookie("accessToken", "/"))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

// GetProfile returns the user plus profile; a user from before profiles
// existed gets one created on first access.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID, ok := c.Get("userID").(uint)
	if !ok || userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	var profile models.UserProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		profile = models.UserProfile{UserID: userID}
		if err := h.DB.Create(&profile).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":    user,
		"profile": profile,
	})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_profile")

	userID, ok := c.Get("userID").(uint)
	if !ok || userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		Age        *int   `json:"age"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_profile_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if req.Email != "" && req.Email != user.Email {
		var other models.User
		if err := h.DB.Where("email = ? AND id <> ?", req.Email, userID).First(&other).Error; err == nil {
			l.Warn("update_profile_failed", "status", 409, "reason", "email_taken")
			return echo.NewHTTPError(http.StatusConflict, "email already taken")
		}
		user.Email = req.Email
		if err := h.DB.Save(&user).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	var profile models.UserProfile
	if err := h.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		profile = models.UserProfile{UserID: userID}
	}

	profile.FullName = req.FullName
	profile.Age = req.Age
	profile.Phone = req.Phone
	profile.Address = req.Address
	profile.City = req.City
	profile.PostalCode = req.PostalCode
	profile.Country = req.Country
	if err := h.DB.Save(&profile).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("profile_updated")
	return c.JSON(http.StatusOK, echo.Map{
		"user":    user,
		"profile": profile,
	})
}

func (h *AuthHandler) publish(c echo.Context, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
