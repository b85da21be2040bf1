package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DiscountRuleRepository — in-memory хранилище правил скидок для разработки и тестов.
type DiscountRuleRepository struct {
	mu    sync.RWMutex
	rules []domain.DiscountRule
}

// NewDiscountRuleRepository возвращает пустое хранилище правил.
func NewDiscountRuleRepository() *DiscountRuleRepository {
	return &DiscountRuleRepository{}
}

// Put добавляет правило в конец списка.
func (r *DiscountRuleRepository) Put(rule domain.DiscountRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// ListActive возвращает активные правила в порядке создания.
func (r *DiscountRuleRepository) ListActive() ([]domain.DiscountRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.DiscountRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.Active {
			result = append(result, rule)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

var _ domain.DiscountRuleRepository = (*DiscountRuleRepository)(nil)
