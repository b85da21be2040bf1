package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type discountRepository struct {
	db *sql.DB
}

// NewDiscountRuleRepository создаёт PostgreSQL-реализацию DiscountRuleRepository.
// Правила заводит админка; ядру нужен только список активных.
func NewDiscountRuleRepository(store *Store) domain.DiscountRuleRepository {
	return &discountRepository{db: store.DB()}
}

func (r *discountRepository) ListActive() ([]domain.DiscountRule, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, discount_type, target_type,
		       COALESCE(category, ''), COALESCE(product_id, ''),
		       COALESCE(bundle_qty, 0), COALESCE(bundle_price, 0), COALESCE(percentage, 0),
		       active, created_at
		FROM discount_rules
		WHERE active = TRUE
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active discount rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]domain.DiscountRule, error) {
	rules := make([]domain.DiscountRule, 0)
	for rows.Next() {
		var (
			rule         domain.DiscountRule
			discountType string
			targetType   string
		)
		if err := rows.Scan(
			&rule.ID, &discountType, &targetType,
			&rule.Category, &rule.ProductID,
			&rule.BundleQty, &rule.BundlePrice, &rule.Percentage,
			&rule.Active, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan discount rule: %w", err)
		}
		rule.DiscountType = domain.DiscountType(discountType)
		rule.TargetType = domain.TargetType(targetType)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount rules: %w", err)
	}

	return rules, nil
}

var _ domain.DiscountRuleRepository = (*discountRepository)(nil)
