// Package backup exports and restores the product catalog together with the
// purchase log as a single JSON document.
package backup

import (
	"time"

	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/procurement"
)

// FormatVersion is written into every export and required on restore.
const FormatVersion = 1

// Document is the backup file layout.
type Document struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exportedAt"`
	Inventory  []inventory.Product    `json:"inventory"`
	Purchases  []procurement.Purchase `json:"purchases"`
}

// RestoreResult reports what a restore replaced.
type RestoreResult struct {
	Message   string `json:"message"`
	Products  int    `json:"products"`
	Purchases int    `json:"purchases"`
}
