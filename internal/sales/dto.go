package sales

import (
	"math"
	"strings"
)

// SaleItemInput is one submitted cart line. Unknown fields such as a
// client-computed line total are ignored.
type SaleItemInput struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Price     float64    `json:"price" validate:"gte=0,lte=999999999999.99,cents"`
	Quantity  int        `json:"quantity" validate:"gt=0,lte=2147483647"`
	ProductID OptionalID `json:"productId"`
}

// RecordSaleRequest is the body of POST /api/sale.
type RecordSaleRequest struct {
	SaleItems   []SaleItemInput `json:"saleItems" validate:"dive"`
	CustomerID  OptionalID      `json:"customerId"`
	PaymentType PaymentType     `json:"paymentType" validate:"required,oneof=cash debt"`
}

func (r *RecordSaleRequest) normalize() {
	r.PaymentType = PaymentType(strings.ToLower(strings.TrimSpace(string(r.PaymentType))))
	for i := range r.SaleItems {
		r.SaleItems[i].Name = strings.TrimSpace(r.SaleItems[i].Name)
	}
}

// MaxAmount is the largest amount a NUMERIC(14,2) column holds.
const MaxAmount = 999999999999.99

// Total is the sum of price x quantity over the cart. Prices are summed in
// whole cents so the result matches the stored line items exactly.
func (r RecordSaleRequest) Total() float64 {
	var cents float64
	for _, item := range r.SaleItems {
		cents += math.Round(item.Price*100) * float64(item.Quantity)
	}
	return cents / 100
}

// SaleResult is returned after a committed sale.
type SaleResult struct {
	SaleID int64   `json:"saleId"`
	Total  float64 `json:"total"`
}

// RecordSaleResponse is the 201 body of POST /api/sale.
type RecordSaleResponse struct {
	Message string  `json:"message"`
	SaleID  int64   `json:"saleId"`
	Total   float64 `json:"total"`
}
