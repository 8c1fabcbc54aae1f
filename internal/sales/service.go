package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roz-pos/roz/internal/notify"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// Store is the persistence surface used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, limit, offset int) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListDebts(ctx context.Context, customerID *int64) ([]Debt, error)
}

// Auditor records committed mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives sale outcomes.
type Metrics interface {
	ObserveSale(paymentType string, total float64)
	ObserveSaleFailure(reason string)
}

// Options carries the optional collaborators of Service.
type Options struct {
	Notifier  notify.Notifier
	Formatter *notify.Formatter
	Audit     Auditor
	Metrics   Metrics
	Logger    *slog.Logger
}

// Service records sales and serves sale history.
type Service struct {
	store     Store
	notifier  notify.Notifier
	formatter *notify.Formatter
	audit     Auditor
	metrics   Metrics
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:     store,
		notifier:  opts.Notifier,
		formatter: opts.Formatter,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	if s.formatter == nil {
		s.formatter = notify.NewFormatter("")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ValidateSale checks a sale request without touching the store.
func ValidateSale(req *RecordSaleRequest) error {
	req.normalize()
	if len(req.SaleItems) == 0 {
		return fmt.Errorf("%w: sale must contain at least one item", httpx.ErrValidation)
	}
	if err := httpx.ValidateStruct(req); err != nil {
		return err
	}
	if req.PaymentType == PaymentDebt && !req.CustomerID.Valid {
		return fmt.Errorf("%w: a customer is required for debt sales", httpx.ErrValidation)
	}
	if req.Total() > MaxAmount {
		return fmt.Errorf("%w: sale total exceeds %.2f", httpx.ErrValidation, MaxAmount)
	}
	return nil
}

// RecordSale validates the cart and writes the sale, its items and, for
// credit sales, the debt in one transaction. The notification is scheduled
// only after commit and never affects the result.
func (s *Service) RecordSale(ctx context.Context, req RecordSaleRequest, idempotencyKey string) (SaleResult, error) {
	if err := ValidateSale(&req); err != nil {
		s.observeFailure("validation")
		return SaleResult{}, err
	}

	total := req.Total()
	actor := shared.ActorFromContext(ctx)
	var (
		saleID       int64
		customerName string
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if idempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, idempotencyKey); err != nil {
				return err
			}
		}
		if req.CustomerID.Valid {
			name, err := tx.CustomerName(ctx, req.CustomerID.Value)
			if errors.Is(err, httpx.ErrNotFound) {
				return fmt.Errorf("%w: customer %d does not exist", httpx.ErrValidation, req.CustomerID.Value)
			}
			if err != nil {
				return fmt.Errorf("lookup customer: %w", err)
			}
			customerName = name
		}

		id, err := tx.InsertSale(ctx, Sale{
			CustomerID:  req.CustomerID.Ptr(),
			TotalAmount: total,
			PaymentType: req.PaymentType,
			CreatedBy:   actor,
		})
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		saleID = id

		for i, line := range req.SaleItems {
			if _, err := tx.InsertSaleItem(ctx, SaleItem{
				SaleID:    saleID,
				ProductID: line.ProductID.Ptr(),
				Name:      line.Name,
				Quantity:  line.Quantity,
				Price:     line.Price,
			}); err != nil {
				return fmt.Errorf("insert sale item %d: %w", i+1, err)
			}
			if line.ProductID.Valid {
				if err := tx.DecrementStock(ctx, line.ProductID.Value, line.Quantity); err != nil {
					return fmt.Errorf("sale item %q: %w", line.Name, err)
				}
			}
		}

		if req.PaymentType == PaymentDebt {
			if _, err := tx.InsertDebt(ctx, Debt{
				CustomerID: req.CustomerID.Value,
				SaleID:     saleID,
				TotalDebt:  total,
			}); err != nil {
				return fmt.Errorf("insert debt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.observeFailure(failureReason(err))
		return SaleResult{}, err
	}

	s.afterCommit(ctx, saleID, total, customerName, req)
	return SaleResult{SaleID: saleID, Total: total}, nil
}

func (s *Service) afterCommit(ctx context.Context, saleID int64, total float64, customerName string, req RecordSaleRequest) {
	s.logger.Info("sale recorded",
		slog.Int64("sale_id", saleID),
		slog.Float64("total", total),
		slog.String("payment_type", string(req.PaymentType)),
		slog.Int("items", len(req.SaleItems)))

	if s.audit != nil {
		meta := map[string]any{
			"total":        total,
			"payment_type": req.PaymentType,
			"items":        len(req.SaleItems),
		}
		if req.CustomerID.Valid {
			meta["customer_id"] = req.CustomerID.Value
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "create",
			Entity:   "sale",
			EntityID: strconv.FormatInt(saleID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit sale", slog.Int64("sale_id", saleID), slog.Any("error", err))
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSale(string(req.PaymentType), total)
	}

	lines := make([]notify.Line, 0, len(req.SaleItems))
	for _, item := range req.SaleItems {
		lines = append(lines, notify.Line{Name: item.Name, Quantity: item.Quantity})
	}
	s.notifier.Notify(ctx, s.formatter.Sale(notify.SaleSummary{
		SaleID:       saleID,
		Total:        total,
		PaymentType:  string(req.PaymentType),
		CustomerID:   req.CustomerID.Value,
		CustomerName: customerName,
		Lines:        lines,
	}))
}

func (s *Service) observeFailure(reason string) {
	if s.metrics != nil {
		s.metrics.ObserveSaleFailure(reason)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, httpx.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, httpx.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

// ListSales returns sale headers newest first.
func (s *Service) ListSales(ctx context.Context, limit, offset int) ([]Sale, error) {
	return s.store.ListSales(ctx, limit, offset)
}

// GetSale returns a sale with its items.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	return s.store.GetSale(ctx, id)
}

// ListDebts returns every open debt.
func (s *Service) ListDebts(ctx context.Context) ([]Debt, error) {
	return s.store.ListDebts(ctx, nil)
}

// CustomerDebts returns the debts of one customer.
func (s *Service) CustomerDebts(ctx context.Context, customerID int64) ([]Debt, error) {
	return s.store.ListDebts(ctx, &customerID)
}
