package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// fileRepository keeps the product table in a single JSON file.
// Every write replaces the file through a rename, so a crash leaves either the old or the new table.
type fileRepository struct {
	mu       sync.RWMutex
	path     string
	products map[uuid.UUID]Product
}

// NewFileRepository opens the table stored at path, creating parent directories as needed.
func NewFileRepository(path string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	r := &fileRepository{path: path, products: make(map[uuid.UUID]Product)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}
	var rows []Product
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", path, err)
	}
	for _, p := range rows {
		r.products[p.ID] = p
	}
	return r, nil
}

func (r *fileRepository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *fileRepository) Put(ctx context.Context, p *Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.copyProducts()
	next[p.ID] = *p
	if err := r.persist(next); err != nil {
		return err
	}
	r.products = next
	return nil
}

func (r *fileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	next := r.copyProducts()
	delete(next, id)
	if err := r.persist(next); err != nil {
		return err
	}
	r.products = next
	return nil
}

func (r *fileRepository) Filter(ctx context.Context, match func(*Product) bool) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Product, 0, len(r.products))
	for _, p := range sortedProducts(r.products) {
		if match == nil || match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fileRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[uuid.UUID]Product)
	if err := r.persist(next); err != nil {
		return err
	}
	r.products = next
	return nil
}

func (r *fileRepository) copyProducts() map[uuid.UUID]Product {
	next := make(map[uuid.UUID]Product, len(r.products)+1)
	for id, p := range r.products {
		next[id] = p
	}
	return next
}

// persist writes the table to a temp file, syncs it and renames it over the store.
func (r *fileRepository) persist(products map[uuid.UUID]Product) error {
	data, err := json.MarshalIndent(sortedProducts(products), "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func sortedProducts(products map[uuid.UUID]Product) []*Product {
	out := make([]*Product, 0, len(products))
	for _, p := range products {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
