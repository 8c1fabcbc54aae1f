package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/notify"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPurchases(ctx context.Context, limit, offset int) ([]Purchase, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records purchases against the catalog.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	notifier  notify.Notifier
	formatter *notify.Formatter
	logger    *slog.Logger
}

// NewService constructs procurement service. audit and notifier may be nil.
func NewService(repo RepositoryPort, audit AuditPort, notifier notify.Notifier, formatter *notify.Formatter, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if formatter == nil {
		formatter = notify.NewFormatter("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, formatter: formatter, logger: logger}
}

// RecordPurchase stores the purchase and adds its quantity to the product's
// stock in one transaction, then schedules a notification.
func (s *Service) RecordPurchase(ctx context.Context, req PurchaseRequest) (PurchaseResponse, error) {
	req.normalize()
	if req.ItemName == "" {
		return PurchaseResponse{}, fmt.Errorf("%w: itemName is required", httpx.ErrValidation)
	}
	if err := httpx.ValidateStruct(&req); err != nil {
		return PurchaseResponse{}, err
	}

	actor := shared.ActorFromContext(ctx)
	var resp PurchaseResponse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.ReceiveStock(ctx, inventory.ReceiptInput{
			ProductID:     req.ProductID,
			Name:          req.ItemName,
			Quantity:      req.Quantity,
			PurchasePrice: req.PurchasePrice,
			SellPrice:     req.SellPrice,
			Vendor:        req.Vendor,
		})
		if err != nil {
			return fmt.Errorf("receive stock: %w", err)
		}
		id, err := tx.InsertPurchase(ctx, Purchase{
			ProductID:     &product.ID,
			ItemName:      req.ItemName,
			Quantity:      req.Quantity,
			PurchasePrice: req.PurchasePrice,
			Vendor:        req.Vendor,
			CreatedBy:     actor,
		})
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		resp = PurchaseResponse{Message: "Purchase recorded successfully", PurchaseID: id, ProductID: product.ID}
		return nil
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	s.logger.Info("purchase recorded",
		slog.Int64("purchase_id", resp.PurchaseID),
		slog.Int64("product_id", resp.ProductID),
		slog.Int("quantity", req.Quantity))
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "create",
			Entity:   "purchase",
			EntityID: strconv.FormatInt(resp.PurchaseID, 10),
			Meta:     map[string]any{"item": req.ItemName, "quantity": req.Quantity, "product_id": resp.ProductID},
		}); err != nil {
			s.logger.Warn("audit purchase", slog.Any("error", err))
		}
	}
	s.notifier.Notify(ctx, s.formatter.Purchase(notify.PurchaseSummary{
		ItemName:      req.ItemName,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		Vendor:        req.Vendor,
	}))
	return resp, nil
}

// ListPurchases returns the purchase log newest first.
func (s *Service) ListPurchases(ctx context.Context, limit, offset int) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, limit, offset)
}
