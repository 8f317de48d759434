package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role distinguishes shoppers from catalog administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AddressPlaceholder is what older sessions carry when no address was entered.
// It counts as missing.
const AddressPlaceholder = "No address provided"

// Session is the logged-in identity of one client profile.
type Session struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Address  string `json:"address,omitempty"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the session may use the admin panel.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// HasAddress reports whether a usable shipping address is on file.
func (s *Session) HasAddress() bool {
	if s == nil {
		return false
	}
	addr := strings.TrimSpace(s.Address)
	return addr != "" && addr != AddressPlaceholder
}

// DisplayName returns the name shown in the shell, mirroring the fallback chain
// used for sessions that predate usernames.
func (s *Session) DisplayName() string {
	switch {
	case s == nil:
		return "Guest"
	case s.Username != "":
		return s.Username
	case s.Email != "":
		return s.Email
	default:
		return "User"
	}
}

// User is one record of the registered-user list consulted at login.
// Passwords are kept verbatim; this store performs no real authentication.
type User struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Address  string `json:"address,omitempty"`
}

// CartLine is one product in the cart. Quantity is always at least 1.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"qty"`
}

// Subtotal is price × quantity using the canonical USD price.
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.Product.PriceUSD.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a read view of the cart lines with derived totals.
type Cart struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// NewCart derives counts and totals from lines. Totals are never cached on disk.
func NewCart(lines []CartLine) *Cart {
	if lines == nil {
		lines = []CartLine{}
	}
	return &Cart{
		Lines:     lines,
		ItemCount: CountItems(lines),
		Total:     CartTotal(lines),
	}
}

// CartTotal sums price × quantity over lines.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Subtotal())
	}
	return total
}

// CountItems sums quantities over lines.
func CountItems(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// WishlistEntry is a product saved for later; quantity is implicitly 1.
type WishlistEntry struct {
	Product Product   `json:"product"`
	AddedAt time.Time `json:"added_at"`
}

// PaymentMethod is how a draft is paid.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "COD"
	PaymentTransfer PaymentMethod = "Transfer"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentTransfer
}

// OrderStatusPaid is the only status this store assigns.
const OrderStatusPaid = "Paid"

// Draft is the pending order captured when checkout begins.
type Draft struct {
	ID        string          `json:"id"`
	Customer  Session         `json:"customer"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order is a completed draft. It is never changed after it is appended.
type Order struct {
	ID            int64           `json:"id"`
	DraftID       string          `json:"draft_id"`
	Customer      Session         `json:"customer"`
	Items         []CartLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
	PaidAt        time.Time       `json:"paid_at"`
}

// PaymentOption describes one accepted payment method as shown at checkout.
type PaymentOption struct {
	Method       PaymentMethod `json:"method"`
	Label        string        `json:"label"`
	Instructions string        `json:"instructions,omitempty"`
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the new session plus the page the shell should open next.
type LoginResult struct {
	Session  Session `json:"session"`
	Redirect string  `json:"redirect"`
}

// ProfileUpdate is the profile edit form payload. An empty password keeps the current one.
type ProfileUpdate struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Address  string `json:"address"`
	Password string `json:"password,omitempty"`
}
