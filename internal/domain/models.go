// Package domain defines the persistence models for users, the service
// catalog, orders, technician assignments, and order chat. These types are
// mapped with GORM and form the core data layer of the marketplace.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder: a client who books services, a technician who
// fulfils them, or an admin who moderates the marketplace.
//
// Fields:
//   - ID: integer surrogate key.
//   - Email: unique login identifier (unique index ux_users_email).
//   - PasswordHash: bcrypt hash; never serialized.
//   - Role: client, technician or admin. Immutable after creation.
//   - Active: soft-deactivation flag; inactive users cannot log in.
//   - JoinedAt / LastLogin: registration and most recent login timestamps.
type User struct {
	ID           uint       `json:"id"            gorm:"primaryKey"`
	Email        string     `json:"email"         gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string     `json:"-"             gorm:"type:varchar(255);not null"`
	Name         string     `json:"name"          gorm:"type:varchar(255);not null"`
	Role         Role       `json:"role"          gorm:"type:varchar(16);not null;index;check:role IN ('client','technician','admin')"`
	Active       bool       `json:"active"        gorm:"not null;default:true"`
	Phone        *string    `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Bio          *string    `json:"bio,omitempty"   gorm:"type:text"`
	JoinedAt     time.Time  `json:"joined_at"     gorm:"autoCreateTime"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Service is a catalog entry. Catalog rows are reference data seeded once.
type Service struct {
	ID          uint            `json:"id"          gorm:"primaryKey"`
	Name        string          `json:"name"        gorm:"type:varchar(255);not null"`
	Category    string          `json:"category"    gorm:"type:varchar(64);not null;index"`
	Price       decimal.Decimal `json:"price"       gorm:"type:decimal(10,2);not null;check:price >= 0"`
	Description string          `json:"description" gorm:"type:text"`
	Icon        string          `json:"icon"        gorm:"type:varchar(16)"`
	Rating      float64         `json:"rating"      gorm:"not null;default:4.5"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// Order is a booking of one Service by one client.
//
// Fields:
//   - ID: opaque UUID string.
//   - ClientID / ServiceID: foreign keys (must reference existing rows).
//   - BookingDate: requested service date, YYYY-MM-DD.
//   - Status: Pending, Done or Cancelled.
//   - PaymentMethod: recorded label only.
//   - Price: snapshot of the catalog price taken at creation; never recomputed.
//   - Version: incremented on every status change; used for compare-and-set.
type Order struct {
	ID            string          `json:"id"             gorm:"type:char(36);primaryKey"`
	ClientID      uint            `json:"client_id"      gorm:"not null;index:idx_orders_client"`
	ServiceID     uint            `json:"service_id"     gorm:"not null;index"`
	BookingDate   string          `json:"booking_date"   gorm:"type:varchar(10);not null;index"`
	Status        OrderStatus     `json:"status"         gorm:"type:varchar(16);not null;default:'Pending';index;check:status IN ('Pending','Done','Cancelled')"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(32)"`
	Notes         string          `json:"notes"          gorm:"type:text"`
	Price         decimal.Decimal `json:"price"          gorm:"type:decimal(10,2);not null;check:price >= 0"`
	Version       int             `json:"version"        gorm:"not null;default:1"`
	CreatedAt     time.Time       `json:"created_at"     gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Client  User    `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Service Service `json:"-" gorm:"foreignKey:ServiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// TechnicianAssignment links an order to at most one technician. The unique
// index on OrderID keeps a single active row per order.
type TechnicianAssignment struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	OrderID      string    `json:"order_id"      gorm:"type:char(36);not null;uniqueIndex:ux_assignment_order"`
	TechnicianID uint      `json:"technician_id" gorm:"not null;index"`
	AssignedAt   time.Time `json:"assigned_at"   gorm:"autoCreateTime"`

	Order      Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Technician User  `json:"-" gorm:"foreignKey:TechnicianID;references:ID"`
}

// TableName returns the database table name for TechnicianAssignment.
func (TechnicianAssignment) TableName() string { return "technician_assignments" }

// ChatMessage is one entry of an order's chat. Messages are append-only;
// the only mutation is the one-way Unread -> Read flip.
type ChatMessage struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	OrderID   string    `json:"order_id"   gorm:"type:char(36);not null;index:idx_chat_order,priority:1"`
	SenderID  uint      `json:"sender_id"  gorm:"not null;index"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read"    gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_order,priority:2"`

	Order  Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender User  `json:"-" gorm:"foreignKey:SenderID;references:ID"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null"`
	Subject   string    `json:"subject"    gorm:"type:varchar(255);not null"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'Unread'"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ContactMessage.
func (ContactMessage) TableName() string { return "contact_messages" }
