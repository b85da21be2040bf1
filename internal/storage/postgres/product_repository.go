package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Ядро checkout читает каталог, но никогда не пишет в него напрямую:
// все декременты стока идут через ConfirmPayment.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, weight_grams, stock, image_url, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.Category, &product.Price,
		&product.WeightGrams, &product.Stock, &product.ImageURL,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT size, stock
		FROM product_variants
		WHERE product_id = $1
		ORDER BY size ASC
	`, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var variant domain.ProductVariant
		if err := rows.Scan(&variant.Size, &variant.Stock); err != nil {
			return domain.Product{}, fmt.Errorf("scan product variant: %w", err)
		}
		product.Variants = append(product.Variants, variant)
	}
	if err := rows.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("iterate product variants: %w", err)
	}

	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
