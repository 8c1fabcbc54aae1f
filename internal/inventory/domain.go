package inventory

import (
	"strings"
	"time"
)

// Product is a catalog entry with its stock on hand.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	SellPrice     float64   `json:"sellPrice"`
	PurchasePrice float64   `json:"purchasePrice"`
	Vendor        string    `json:"vendor"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProductRequest is the body of create and update calls.
type ProductRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Quantity      int     `json:"quantity" validate:"gte=0,lte=2147483647"`
	SellPrice     float64 `json:"sellPrice" validate:"gte=0,lte=999999999999.99,cents"`
	PurchasePrice float64 `json:"purchasePrice" validate:"gte=0,lte=999999999999.99,cents"`
	Vendor        string  `json:"vendor" validate:"max=200"`
	Image         string  `json:"image" validate:"max=2048"`
}

func (r *ProductRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Vendor = strings.TrimSpace(r.Vendor)
	r.Image = strings.TrimSpace(r.Image)
}

func (r ProductRequest) product(id int64) Product {
	return Product{
		ID:            id,
		Name:          r.Name,
		Quantity:      r.Quantity,
		SellPrice:     r.SellPrice,
		PurchasePrice: r.PurchasePrice,
		Vendor:        r.Vendor,
		Image:         r.Image,
	}
}

// ReceiptInput describes stock arriving from a purchase. When ProductID is
// nil the product is matched by name and created if unknown.
type ReceiptInput struct {
	ProductID     *int64
	Name          string
	Quantity      int
	PurchasePrice float64
	SellPrice     *float64
	Vendor        string
}
