package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// Auditor records mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements customer business rules.
type Service struct {
	repo   Repository
	audit  Auditor
	logger *slog.Logger
}

// NewService builds a Service. audit may be nil.
func NewService(repo Repository, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns every customer ordered by name.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.List(ctx)
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new customer.
func (s *Service) Create(ctx context.Context, req CustomerRequest) (*Customer, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, Customer{Name: req.Name, Phone: req.Phone, Address: req.Address, Email: req.Email})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.record(ctx, "create", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Update replaces the customer's fields.
func (s *Service) Update(ctx context.Context, id int64, req CustomerRequest) (*Customer, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	c, err := s.repo.Update(ctx, Customer{ID: id, Name: req.Name, Phone: req.Phone, Address: req.Address, Email: req.Email})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	s.record(ctx, "update", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Delete removes a customer. Missing ids report not found.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.record(ctx, "delete", id, nil)
	return nil
}

func validate(req *CustomerRequest) error {
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
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit customer", slog.String("action", action), slog.Any("error", err))
	}
}
