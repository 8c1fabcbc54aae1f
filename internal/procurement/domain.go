package procurement

import (
	"strings"
	"time"
)

// Purchase is one recorded stock receipt.
type Purchase struct {
	ID            int64     `json:"id"`
	ProductID     *int64    `json:"productId"`
	ItemName      string    `json:"itemName"`
	Quantity      int       `json:"quantity"`
	PurchasePrice float64   `json:"purchasePrice"`
	Vendor        string    `json:"vendor"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PurchaseRequest is the body of POST /api/purchase.
type PurchaseRequest struct {
	ItemName      string   `json:"itemName" validate:"required,max=200"`
	Quantity      int      `json:"quantity" validate:"gt=0,lte=2147483647"`
	PurchasePrice float64  `json:"purchasePrice" validate:"gte=0,lte=999999999999.99,cents"`
	Vendor        string   `json:"vendor" validate:"max=200"`
	ProductID     *int64   `json:"productId" validate:"omitempty,gt=0"`
	SellPrice     *float64 `json:"sellPrice" validate:"omitempty,gte=0,lte=999999999999.99,cents"`
}

func (r *PurchaseRequest) normalize() {
	r.ItemName = strings.TrimSpace(r.ItemName)
	r.Vendor = strings.TrimSpace(r.Vendor)
}

// PurchaseResponse is the body returned after a recorded purchase.
type PurchaseResponse struct {
	Message    string `json:"message"`
	PurchaseID int64  `json:"purchaseId"`
	ProductID  int64  `json:"productId"`
}
