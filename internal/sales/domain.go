package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roz-pos/roz/internal/platform/httpx"
)

// PaymentType distinguishes paid-now sales from sales on credit.
type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentDebt PaymentType = "debt"
)

// ErrInsufficientStock indicates a conditional stock decrement matched no row.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", httpx.ErrConflict)

// OptionalID is an identifier that clients may send as a number, a numeric
// string, an empty string or null.
type OptionalID struct {
	Value int64
	Valid bool
}

// SomeID returns a set OptionalID.
func SomeID(v int64) OptionalID {
	return OptionalID{Value: v, Valid: true}
}

// Ptr returns the id as a pointer, nil when unset.
func (o OptionalID) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	*o = OptionalID{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("invalid identifier %s", data)
	}
	*o = SomeID(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(o.Value, 10)), nil
}

// Sale is a committed, immutable sale header.
type Sale struct {
	ID           int64       `json:"id"`
	CustomerID   *int64      `json:"customerId"`
	CustomerName string      `json:"customerName,omitempty"`
	TotalAmount  float64     `json:"totalAmount"`
	PaymentType  PaymentType `json:"paymentType"`
	CreatedBy    string      `json:"createdBy"`
	CreatedAt    time.Time   `json:"createdAt"`
	Items        []SaleItem  `json:"items,omitempty"`
}

// SaleItem is one line of a sale. The name and price are copied at sale time.
type SaleItem struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"saleId"`
	ProductID *int64  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Debt is the open balance created by a credit sale.
type Debt struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customerId"`
	CustomerName string    `json:"customerName,omitempty"`
	SaleID       int64     `json:"saleId"`
	TotalDebt    float64   `json:"totalDebt"`
	CreatedAt    time.Time `json:"createdAt"`
}
