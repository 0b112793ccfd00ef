package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

const productsSchema = `
CREATE TABLE IF NOT EXISTS products (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	stock_level         TEXT NOT NULL,
	is_on_shopping_list BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the products table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, productsSchema)
	return err
}

type postgresRepository struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL product repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepository{db: db} }

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var level string
	if err := scan(&p.ID, &p.Name, &level, &p.IsOnShoppingList, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.StockLevel = StockLevel(level)
	return p, nil
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,name,stock_level,is_on_shopping_list,created_at,updated_at
		FROM products WHERE id=$1`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *postgresRepository) Put(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id,name,stock_level,is_on_shopping_list,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
		  name=EXCLUDED.name,
		  stock_level=EXCLUDED.stock_level,
		  is_on_shopping_list=EXCLUDED.is_on_shopping_list,
		  updated_at=EXCLUDED.updated_at`,
		p.ID, p.Name, string(p.StockLevel), p.IsOnShoppingList, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Filter(ctx context.Context, match func(*Product) bool) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,name,stock_level,is_on_shopping_list,created_at,updated_at
		FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		if match == nil || match(p) {
			products = append(products, p)
		}
	}
	return products, rows.Err()
}

func (r *postgresRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products`)
	return err
}
