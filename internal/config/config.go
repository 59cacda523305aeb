package config

import (
	"fmt"
	"log"
	"os"

	"github.com/goldenfragrance/shop/internal/models"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET     string
	REFRESH_SECRET string
	SESSION_SECRET string

	KAFKA_ADDRESS string

	GATEWAY_URL            string
	GATEWAY_API_KEY        string
	GATEWAY_WEBHOOK_SECRET string

	AWS_REGION            string
	AWS_ACCESS_KEY_ID     string
	AWS_SECRET_ACCESS_KEY string
	SENDER_EMAIL          string
	ADMIN_EMAIL           string

	BASE_URL  string
	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),
		SESSION_SECRET: os.Getenv("SESSION_SECRET"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		GATEWAY_URL:            os.Getenv("GATEWAY_URL"),
		GATEWAY_API_KEY:        os.Getenv("GATEWAY_API_KEY"),
		GATEWAY_WEBHOOK_SECRET: os.Getenv("GATEWAY_WEBHOOK_SECRET"),

		AWS_REGION:            os.Getenv("AWS_REGION"),
		AWS_ACCESS_KEY_ID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWS_SECRET_ACCESS_KEY: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SENDER_EMAIL:          os.Getenv("SENDER_EMAIL"),
		ADMIN_EMAIL:           os.Getenv("ADMIN_EMAIL"),

		BASE_URL:  os.Getenv("BASE_URL"),
		LOG_LEVEL: os.Getenv("LOG_LEVEL"),
	}

	return config, nil
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Collection{},
		&models.Product{},
		&models.User{},
		&models.UserProfile{},
		&models.Wishlist{},
		&models.RefreshToken{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
	)
}
