package pricing

import (
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LineItem — позиция корзины на входе движка скидок, с серверной ценой и категорией.
type LineItem struct {
	ProductID string
	Name      string
	Category  string
	Qty       int
	Price     float64
}

// BreakdownEntry — одна применённая скидка для отображения и аудита.
type BreakdownEntry struct {
	Description string
	Saving      float64
}

// Result — итог работы движка скидок.
type Result struct {
	Breakdown       []BreakdownEntry
	TotalDiscount   float64
	DiscountedTotal float64
}

// ApplyDiscounts — чистая функция: позиции корзины + активные правила →
// скидочный итог с построчной расшифровкой. Правила применяются в фиксированном
// порядке стадий, каждая стадия работает по уже скорректированной сумме, так что
// стадии складываются, а не пересекаются:
//  1. bundle по категории
//  2. bundle по товару
//  3. percentage по категории
//  4. percentage по товару
//
// На каждую пару (цель, тип) срабатывает не больше одного правила — первое
// подходящее по порядку следования. Неподходящие правила просто пропускаются.
func ApplyDiscounts(items []LineItem, rules []domain.DiscountRule) Result {
	raw := 0.0
	for _, item := range items {
		raw += item.Price * float64(item.Qty)
	}

	// Агрегаты по категориям и товарам; adjusted-суммы уменьшаются по мере
	// применения стадий.
	catQty := map[string]int{}
	catAdj := map[string]float64{}
	prodQty := map[string]int{}
	prodAdj := map[string]float64{}
	prodCat := map[string]string{}
	for _, item := range items {
		catQty[item.Category] += item.Qty
		catAdj[item.Category] += item.Price * float64(item.Qty)
		prodQty[item.ProductID] += item.Qty
		prodAdj[item.ProductID] += item.Price * float64(item.Qty)
		prodCat[item.ProductID] = item.Category
	}

	result := Result{}

	// Стадия 1: bundle по категории.
	for _, cat := range sortedKeys(catAdj) {
		rule, ok := firstMatch(rules, domain.DiscountTypeBundle, domain.TargetTypeCategory, cat, catQty[cat])
		if !ok {
			continue
		}
		saving := bundleSaving(catQty[cat], catAdj[cat], rule)
		if saving <= 0 {
			continue
		}
		// Товары категории уменьшаются пропорционально, чтобы следующие
		// стадии работали по уже скорректированным суммам.
		factor := (catAdj[cat] - saving) / catAdj[cat]
		for pid, c := range prodCat {
			if c == cat {
				prodAdj[pid] *= factor
			}
		}
		catAdj[cat] -= saving
		result.TotalDiscount += saving
		result.Breakdown = append(result.Breakdown, BreakdownEntry{
			Description: fmt.Sprintf("Bundle offer on %s: %d for %.2f", cat, rule.BundleQty, rule.BundlePrice),
			Saving:      saving,
		})
	}

	// Стадия 2: bundle по товару.
	for _, pid := range sortedKeys(prodAdj) {
		rule, ok := firstMatch(rules, domain.DiscountTypeBundle, domain.TargetTypeProduct, pid, prodQty[pid])
		if !ok {
			continue
		}
		saving := bundleSaving(prodQty[pid], prodAdj[pid], rule)
		if saving <= 0 {
			continue
		}
		prodAdj[pid] -= saving
		catAdj[prodCat[pid]] -= saving
		result.TotalDiscount += saving
		result.Breakdown = append(result.Breakdown, BreakdownEntry{
			Description: fmt.Sprintf("Bundle offer on %s: %d for %.2f", nameFor(items, pid), rule.BundleQty, rule.BundlePrice),
			Saving:      saving,
		})
	}

	// Стадия 3: percentage по категории (от уже скорректированной суммы).
	for _, cat := range sortedKeys(catAdj) {
		rule, ok := firstMatch(rules, domain.DiscountTypePercentage, domain.TargetTypeCategory, cat, catQty[cat])
		if !ok {
			continue
		}
		saving := catAdj[cat] * rule.Percentage / 100
		if saving <= 0 {
			continue
		}
		catAdj[cat] -= saving
		// Товары категории уменьшаются пропорционально, чтобы стадия 4
		// работала по уже скорректированным суммам.
		for pid, c := range prodCat {
			if c == cat {
				prodAdj[pid] *= 1 - rule.Percentage/100
			}
		}
		result.TotalDiscount += saving
		result.Breakdown = append(result.Breakdown, BreakdownEntry{
			Description: fmt.Sprintf("%.0f%% off on %s", rule.Percentage, cat),
			Saving:      saving,
		})
	}

	// Стадия 4: percentage по товару.
	for _, pid := range sortedKeys(prodAdj) {
		rule, ok := firstMatch(rules, domain.DiscountTypePercentage, domain.TargetTypeProduct, pid, prodQty[pid])
		if !ok {
			continue
		}
		saving := prodAdj[pid] * rule.Percentage / 100
		if saving <= 0 {
			continue
		}
		prodAdj[pid] -= saving
		result.TotalDiscount += saving
		result.Breakdown = append(result.Breakdown, BreakdownEntry{
			Description: fmt.Sprintf("%.0f%% off on %s", rule.Percentage, nameFor(items, pid)),
			Saving:      saving,
		})
	}

	result.DiscountedTotal = raw - result.TotalDiscount
	if result.DiscountedTotal < 0 {
		result.DiscountedTotal = 0
	}

	return result
}

// bundleSaving считает экономию bundle-правила: целые комплекты по фиксированной
// цене, остаток — по средней цене единицы в группе.
func bundleSaving(qty int, subtotal float64, rule domain.DiscountRule) float64 {
	if qty < rule.BundleQty || rule.BundleQty <= 0 {
		return 0
	}
	bundles := qty / rule.BundleQty
	remainder := qty % rule.BundleQty
	avgUnit := subtotal / float64(qty)
	bundled := float64(bundles)*rule.BundlePrice + float64(remainder)*avgUnit
	return subtotal - bundled
}

// firstMatch находит первое активное правило нужного типа и цели, порог которого
// удовлетворён текущим количеством.
func firstMatch(rules []domain.DiscountRule, dt domain.DiscountType, tt domain.TargetType, target string, qty int) (domain.DiscountRule, bool) {
	for _, rule := range rules {
		if !rule.Active || rule.DiscountType != dt || rule.TargetType != tt {
			continue
		}
		switch tt {
		case domain.TargetTypeCategory:
			if rule.Category != target {
				continue
			}
		case domain.TargetTypeProduct:
			if rule.ProductID != target {
				continue
			}
		}
		if dt == domain.DiscountTypeBundle && qty < rule.BundleQty {
			continue
		}
		return rule, true
	}
	return domain.DiscountRule{}, false
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nameFor(items []LineItem, productID string) string {
	for _, item := range items {
		if item.ProductID == productID && item.Name != "" {
			return item.Name
		}
	}
	return productID
}
