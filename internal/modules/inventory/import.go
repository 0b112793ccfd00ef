package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ImportResult reports what a receipt import did to the inventory.
type ImportResult struct {
	Added     []*Product `json:"added"`
	Restocked []*Product `json:"restocked"`
	Skipped   []string   `json:"skipped,omitempty"`
}

// ImportCandidates adds unknown names as new products and marks known ones (matched
// case-insensitively) as fully stocked, which takes them off the shopping list.
// It stops at the first failure and returns what was applied so far.
func (s *service) ImportCandidates(ctx context.Context, names []string) (*ImportResult, error) {
	existing, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*Product, len(existing))
	for _, p := range existing {
		key := normaliseName(p.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = p
		}
	}

	result := &ImportResult{Added: []*Product{}, Restocked: []*Product{}}
	seen := make(map[string]bool, len(names))
	high := StockHigh
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		key := normaliseName(name)
		if key == "" {
			continue
		}
		if seen[key] {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		seen[key] = true

		if p, ok := byName[key]; ok {
			updated, err := s.UpdateProduct(ctx, p.ID.String(), ProductPatch{StockLevel: &high})
			if err != nil {
				return result, err
			}
			result.Restocked = append(result.Restocked, updated)
			continue
		}
		added, err := s.AddProduct(ctx, AddProductRequest{Name: name})
		if err != nil {
			return result, err
		}
		result.Added = append(result.Added, added)
	}
	s.logger.Info("receipt imported",
		zap.Int("added", len(result.Added)),
		zap.Int("restocked", len(result.Restocked)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func normaliseName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
