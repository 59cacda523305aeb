package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/goldenfragrance/shop/internal/config"
	"github.com/goldenfragrance/shop/internal/es"
	"github.com/goldenfragrance/shop/internal/handlers"
	"github.com/goldenfragrance/shop/internal/handlers/auth"
	"github.com/goldenfragrance/shop/internal/handlers/cart"
	orderhandlers "github.com/goldenfragrance/shop/internal/handlers/orders"
	"github.com/goldenfragrance/shop/internal/logging"
	"github.com/goldenfragrance/shop/internal/middleware/csrf"
	"github.com/goldenfragrance/shop/internal/mykafka"
	"github.com/goldenfragrance/shop/internal/notify"
	"github.com/goldenfragrance/shop/internal/orders"
	"github.com/goldenfragrance/shop/internal/payment"
	"github.com/goldenfragrance/shop/internal/service"
	httpserver "github.com/goldenfragrance/shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	gateway := payment.NewClient(configuration.GATEWAY_URL, configuration.GATEWAY_API_KEY)

	var notifier notify.Notifier
	if configuration.SENDER_EMAIL != "" {
		mailer, err := notify.NewMailer(configuration, logger)
		if err != nil {
			log.Fatal(err)
		}
		notifier = mailer
	} else {
		logger.Warn("SENDER_EMAIL not set, order notifications disabled")
		notifier = notify.Noop{}
	}

	orderSvc := &orders.Service{
		DB:       db,
		Gateway:  gateway,
		Notifier: notifier,
		BaseURL:  configuration.BASE_URL,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(configuration.SESSION_SECRET))))
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{
			"/api/v1/orders/webhook",
			"/api/v1/register",
			"/api/v1/login",
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logger.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			ctx := logging.IntoContext(c.Request().Context(), l)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &auth.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod},
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler: &orderhandlers.OrderHandler{
			DB:            db,
			Svc:           orderSvc,
			Producer:      prod,
			WebhookSecret: []byte(configuration.GATEWAY_WEBHOOK_SECRET),
		},
		WishlistHandler: &handlers.WishlistHandler{DB: db, Producer: prod},
		ReviewHandler:   &handlers.ReviewHandler{DB: db},
		ServiceHandler:  &service.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "product"},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
