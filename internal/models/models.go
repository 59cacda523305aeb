package models

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

// Order statuses. An order starts as pending and is confirmed by the
// payment gateway, never by the customer's browser alone.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

type Collection struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	IsActive    bool      `gorm:"default:true"             json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product prices are whole currency units (CZK), no fractional subunits.
type Product struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name          string    `gorm:"not null"                  json:"name"`
	Description   string    `gorm:"not null"                  json:"description"`
	Price         int64     `gorm:"not null;check:price >= 0" json:"price"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Image         string    `json:"image"`
	CategoryID    uint      `gorm:"index;not null"            json:"category_id"`
	CollectionID  *uint     `gorm:"index"                     json:"collection_id,omitempty"`
	IsNew         bool      `gorm:"default:false"             json:"is_new"`
	IsFeatured    bool      `gorm:"default:false"             json:"is_featured"`
	StockQuantity int       `gorm:"default:0"                 json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Product) IsOnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

// UserProfile is created explicitly at registration, never by a hook on
// User creation. A user registered before profiles existed has none.
type UserProfile struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint   `gorm:"uniqueIndex;not null"     json:"user_id"`
	FullName   string `json:"full_name"`
	Age        *int   `json:"age,omitempty"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Wishlist struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                       json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	AddedAt   time.Time `gorm:"autoCreateTime"                                 json:"added_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	JTI       string `json:"jti"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Order struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint   `gorm:"index;not null"           json:"user_id"`
	OrderNumber string `gorm:"uniqueIndex"              json:"order_number"`

	FullName   string `gorm:"not null" json:"full_name"`
	Email      string `gorm:"not null" json:"email"`
	Address    string `gorm:"not null" json:"address"`
	City       string `gorm:"not null" json:"city"`
	PostalCode string `gorm:"not null" json:"postal_code"`
	Country    string `gorm:"not null" json:"country"`

	Status       string `gorm:"not null;default:pending" json:"status"`
	TotalAmount  int64  `gorm:"not null"                 json:"total_amount"`
	ShippingCost int64  `gorm:"not null;default:250"     json:"shipping_cost"`
	TaxAmount    int64  `gorm:"not null;default:0"       json:"tax_amount"`

	TrackingCompany string `json:"tracking_company,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	TrackingURL     string `json:"tracking_url,omitempty"`

	GatewaySessionID string `gorm:"index" json:"-"`
	GatewayPaymentID string `json:"-"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the order number exactly once. Re-saving an order
// never regenerates it.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderNumber == "" {
		o.OrderNumber = generateOrderNumber()
	}
	return nil
}

func generateOrderNumber() string {
	return fmt.Sprintf("GF%s%06d", time.Now().Format("20060102"), rand.Intn(1000000))
}

// FinalTotal is computed on read, never stored.
func (o *Order) FinalTotal() int64 {
	return o.TotalAmount + o.ShippingCost + o.TaxAmount
}

// OrderItem snapshots quantity and price at purchase time. It is immutable
// after checkout and its price is decoupled from the current product price.
type OrderItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"     json:"id"`
	OrderID   uint  `gorm:"index;not null"               json:"order_id"`
	ProductID uint  `gorm:"not null"                     json:"product_id"`
	Quantity  int   `gorm:"not null;check:quantity >= 1" json:"quantity"`
	Price     int64 `gorm:"not null"                     json:"price"`
}

func (i *OrderItem) TotalPrice() int64 {
	return int64(i.Quantity) * i.Price
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_user_product"  json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_review_user_product"  json:"product_id"`
	Rating    int       `gorm:"not null"                 json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
