package dailybook

import (
	"context"
	"fmt"
	"strings"

	"github.com/roz-pos/roz/internal/platform/httpx"
)

// Service applies daily book rules.
type Service struct {
	repo Repository
}

// NewService constructs the service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.repo.List(ctx)
}

// Create adds an entry.
func (s *Service) Create(ctx context.Context, req EntryRequest) (*Entry, error) {
	content, err := checkContent(req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, content)
}

// Update replaces the content of an entry.
func (s *Service) Update(ctx context.Context, id int64, req EntryRequest) (*Entry, error) {
	content, err := checkContent(req)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, content)
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func checkContent(req EntryRequest) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", fmt.Errorf("%w: content is required", httpx.ErrValidation)
	}
	if err := httpx.ValidateStruct(req); err != nil {
		return "", err
	}
	return req.Content, nil
}
