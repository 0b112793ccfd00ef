package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines inventory business logic and owns the shopping-list rule.
type Service interface {
	AddProduct(ctx context.Context, req AddProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]*Product, error)
	ListShoppingListItems(ctx context.Context) ([]*Product, error)
	// ImportCandidates merges product names read from a receipt into the inventory.
	ImportCandidates(ctx context.Context, names []string) (*ImportResult, error)
}

// AddProductRequest holds data for creating a product. StockLevel is optional.
type AddProductRequest struct {
	Name       string     `json:"name"`
	StockLevel StockLevel `json:"stock_level,omitempty"`
}

type service struct {
	repo         Repository
	logger       *zap.Logger
	defaultLevel StockLevel
	now          func() time.Time
}

// NewService creates an inventory service. An invalid defaultLevel falls back to high.
func NewService(repo Repository, logger *zap.Logger, defaultLevel StockLevel) Service {
	if !defaultLevel.Valid() {
		defaultLevel = StockHigh
	}
	return &service{
		repo:         repo,
		logger:       logger,
		defaultLevel: defaultLevel,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) AddProduct(ctx context.Context, req AddProductRequest) (*Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	level := s.defaultLevel
	if req.StockLevel != "" {
		if !req.StockLevel.Valid() {
			return nil, fmt.Errorf("%w: unknown stock level %q", ErrValidation, req.StockLevel)
		}
		level = req.StockLevel
	}
	now := s.now()
	p := &Product{
		ID:               uuid.New(),
		Name:             name,
		StockLevel:       level,
		IsOnShoppingList: false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Put(ctx, p); err != nil {
		s.logger.Error("failed to persist new product", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	s.logger.Debug("product added", zap.String("product_id", p.ID.String()), zap.String("stock_level", string(level)))
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, uid)
}

func (s *service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if patch.StockLevel != nil && !patch.StockLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown stock level %q", ErrValidation, *patch.StockLevel)
	}

	current, err := s.get(ctx, uid)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.StockLevel != nil {
		next.StockLevel = *patch.StockLevel
		next.IsOnShoppingList = nextShoppingListFlag(current.IsOnShoppingList, next.StockLevel)
	}
	next.UpdatedAt = s.now()

	if err := s.repo.Put(ctx, &next); err != nil {
		s.logger.Error("failed to persist product update", zap.String("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if next.IsOnShoppingList != current.IsOnShoppingList {
		s.logger.Info("shopping list changed",
			zap.String("product_id", id),
			zap.String("stock_level", string(next.StockLevel)),
			zap.Bool("on_shopping_list", next.IsOnShoppingList))
	}
	return &next, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.logger.Error("failed to delete product", zap.String("product_id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	products, err := s.repo.Filter(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return products, nil
}

func (s *service) ListShoppingListItems(ctx context.Context) ([]*Product, error) {
	products, err := s.repo.Filter(ctx, func(p *Product) bool { return p.IsOnShoppingList })
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return products, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return p, nil
}

// parseID maps malformed ids to ErrNotFound: no product can have them.
func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return uid, nil
}
