package backup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/procurement"
	"github.com/roz-pos/roz/internal/shared"
)

// Store is the persistence surface of Service.
type Store interface {
	Snapshot(ctx context.Context) ([]inventory.Product, []procurement.Purchase, error)
	Replace(ctx context.Context, products []inventory.Product, purchases []procurement.Purchase) error
}

// Auditor records restores.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exports and restores backup documents.
type Service struct {
	store  Store
	audit  Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs Service. audit may be nil.
func NewService(store Store, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger, now: time.Now}
}

// Export builds a document from the current catalog and purchase log.
func (s *Service) Export(ctx context.Context) (Document, error) {
	products, purchases, err := s.store.Snapshot(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export backup: %w", err)
	}
	return Document{
		Version:    FormatVersion,
		ExportedAt: s.now().UTC(),
		Inventory:  products,
		Purchases:  purchases,
	}, nil
}

// Restore validates the whole document and only then replaces the stored
// catalog and purchase log with it.
func (s *Service) Restore(ctx context.Context, doc Document) (RestoreResult, error) {
	if err := s.prepare(&doc); err != nil {
		return RestoreResult{}, err
	}
	if err := s.store.Replace(ctx, doc.Inventory, doc.Purchases); err != nil {
		return RestoreResult{}, fmt.Errorf("restore backup: %w", err)
	}

	s.logger.Warn("backup restored",
		slog.String("actor", shared.ActorFromContext(ctx)),
		slog.Int("products", len(doc.Inventory)),
		slog.Int("purchases", len(doc.Purchases)))
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action: "restore",
			Entity: "backup",
			Meta:   map[string]any{"products": len(doc.Inventory), "purchases": len(doc.Purchases)},
		}); err != nil {
			s.logger.Warn("audit restore", slog.Any("error", err))
		}
	}
	return RestoreResult{
		Message:   "Restore completed",
		Products:  len(doc.Inventory),
		Purchases: len(doc.Purchases),
	}, nil
}

// Reset empties the catalog and purchase log. Sales, debts, customers and
// the daily book are kept.
func (s *Service) Reset(ctx context.Context) (RestoreResult, error) {
	before, purchases, err := s.store.Snapshot(ctx)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("reset inventory: %w", err)
	}
	if err := s.store.Replace(ctx, nil, nil); err != nil {
		return RestoreResult{}, fmt.Errorf("reset inventory: %w", err)
	}

	s.logger.Warn("inventory reset",
		slog.String("actor", shared.ActorFromContext(ctx)),
		slog.Int("products", len(before)),
		slog.Int("purchases", len(purchases)))
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action: "reset",
			Entity: "inventory",
			Meta:   map[string]any{"products": len(before), "purchases": len(purchases)},
		}); err != nil {
			s.logger.Warn("audit reset", slog.Any("error", err))
		}
	}
	return RestoreResult{Message: "Inventory reset", Products: len(before), Purchases: len(purchases)}, nil
}

func (s *Service) prepare(doc *Document) error {
	if doc.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported backup version %d", httpx.ErrValidation, doc.Version)
	}
	now := s.now().UTC()

	productIDs := make(map[int64]bool, len(doc.Inventory))
	names := make(map[string]bool, len(doc.Inventory))
	for i := range doc.Inventory {
		p := &doc.Inventory[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.ID <= 0 || productIDs[p.ID] {
			return fmt.Errorf("%w: inventory[%d]: missing or duplicate id", httpx.ErrValidation, i)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: inventory[%d]: duplicate name %q", httpx.ErrValidation, i, p.Name)
		}
		if err := inventory.ValidateProduct(*p); err != nil {
			return fmt.Errorf("inventory[%d]: %w", i, err)
		}
		productIDs[p.ID] = true
		names[p.Name] = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
	}

	purchaseIDs := make(map[int64]bool, len(doc.Purchases))
	for i := range doc.Purchases {
		p := &doc.Purchases[i]
		p.ItemName = strings.TrimSpace(p.ItemName)
		switch {
		case p.ID <= 0 || purchaseIDs[p.ID]:
			return fmt.Errorf("%w: purchases[%d]: missing or duplicate id", httpx.ErrValidation, i)
		case p.ItemName == "":
			return fmt.Errorf("%w: purchases[%d]: itemName is required", httpx.ErrValidation, i)
		case p.Quantity <= 0:
			return fmt.Errorf("%w: purchases[%d]: quantity must be greater than 0", httpx.ErrValidation, i)
		case p.PurchasePrice < 0:
			return fmt.Errorf("%w: purchases[%d]: purchasePrice must be at least 0", httpx.ErrValidation, i)
		case p.ProductID != nil && !productIDs[*p.ProductID]:
			return fmt.Errorf("%w: purchases[%d]: product %d is not in the backup", httpx.ErrValidation, i, *p.ProductID)
		}
		purchaseIDs[p.ID] = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	return nil
}
