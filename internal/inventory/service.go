package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog maintenance.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListProducts returns the catalog ordered by name.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// CreateProduct validates and stores a product.
func (s *Service) CreateProduct(ctx context.Context, req ProductRequest) (Product, error) {
	if err := validateProduct(&req); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Create(ctx, req.product(0))
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.record(ctx, "create", p.ID, map[string]any{"name": p.Name, "quantity": p.Quantity})
	return p, nil
}

// UpdateProduct replaces a product's fields, stock level included.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req ProductRequest) (Product, error) {
	if err := validateProduct(&req); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Update(ctx, req.product(id))
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.record(ctx, "update", p.ID, map[string]any{"name": p.Name, "quantity": p.Quantity})
	return p, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.record(ctx, "delete", id, nil)
	return nil
}

// ValidateProduct checks a product row, as used by restore.
func ValidateProduct(p Product) error {
	req := ProductRequest{
		Name:          p.Name,
		Quantity:      p.Quantity,
		SellPrice:     p.SellPrice,
		PurchasePrice: p.PurchasePrice,
		Vendor:        p.Vendor,
		Image:         p.Image,
	}
	return validateProduct(&req)
}

func validateProduct(req *ProductRequest) error {
	req.normalize()
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	return httpx.ValidateStruct(req)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit product", slog.String("action", action), slog.Any("error", err))
	}
}
