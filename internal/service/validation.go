package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/iliyamo/product-sales-api/internal/model"
)

const (
	maxNameLen     = 100
	maxEmailLen    = 100
	minPasswordLen = 6
	maxImageURLLen = 500
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an email address. Uniqueness of
// accounts is decided on this form.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate reports every invalid field of a registration request.
func (in RegisterInput) Validate() error {
	var v ValidationError
	requiredMax(&v, "firstName", in.FirstName, maxNameLen)
	requiredMax(&v, "lastName", in.LastName, maxNameLen)
	validEmail(&v, "email", in.Email)
	switch {
	case in.Password == "":
		v.Add("password", "is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		v.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if in.ConfirmPassword != in.Password {
		v.Add("confirmPassword", "must match password")
	}
	return v.Err()
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks presence; wrong formats simply fail to match an
// account.
func (in LoginInput) Validate() error {
	var v ValidationError
	if strings.TrimSpace(in.Email) == "" {
		v.Add("email", "is required")
	}
	if in.Password == "" {
		v.Add("password", "is required")
	}
	return v.Err()
}

// SaleLineInput is one requested line of a sale.
type SaleLineInput struct {
	ProductID uint64          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// RegisterSaleInput is the payload of a sale registration.
type RegisterSaleInput struct {
	Date  model.Date      `json:"date"`
	Items []SaleLineInput `json:"items"`
}

// Validate reports every invalid field; line fields are reported as
// items[i].field.
func (in RegisterSaleInput) Validate() error {
	var v ValidationError
	if in.Date.IsZero() {
		v.Add("date", "is required")
	}
	if len(in.Items) == 0 {
		v.Add("items", "Sale must contain at least one item")
	}
	for i, it := range in.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if it.ProductID == 0 {
			v.Add(prefix+"productId", "is required")
		}
		if it.Quantity <= 0 {
			v.Add(prefix+"quantity", "must be greater than zero")
		}
		validMoney(&v, prefix+"unitPrice", it.UnitPrice)
	}
	return v.Err()
}

// ProductInput is the payload for creating or replacing a product.
type ProductInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	ImageURL string          `json:"imageUrl"`
}

// Validate reports every invalid product field.
func (in ProductInput) Validate() error {
	var v ValidationError
	requiredMax(&v, "name", in.Name, maxNameLen)
	validMoney(&v, "price", in.Price)
	if in.Stock < 0 {
		v.Add("stock", "must not be negative")
	}
	if utf8.RuneCountInString(in.ImageURL) > maxImageURLLen {
		v.Add("imageUrl", fmt.Sprintf("must be at most %d characters", maxImageURLLen))
	}
	return v.Err()
}

func requiredMax(v *ValidationError, field, value string, limit int) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.Add(field, "is required")
	case utf8.RuneCountInString(value) > limit:
		v.Add(field, fmt.Sprintf("must be at most %d characters", limit))
	}
}

func validEmail(v *ValidationError, field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.Add(field, "is required")
	case utf8.RuneCountInString(value) > maxEmailLen:
		v.Add(field, fmt.Sprintf("must be at most %d characters", maxEmailLen))
	case !emailPattern.MatchString(value):
		v.Add(field, "must be a valid email address")
	}
}

func validMoney(v *ValidationError, field string, d decimal.Decimal) {
	switch {
	case d.IsNegative():
		v.Add(field, "must not be negative")
	case !d.Equal(d.Round(2)):
		v.Add(field, "must have at most 2 decimal places")
	}
}
