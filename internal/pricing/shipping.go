package pricing

import "strconv"

// Константы расчёта доставки.
const (
	// HomeCountry — страна домашнего склада; всё остальное считается international.
	HomeCountry = "IN"
	// DefaultUnitWeightGrams подставляется, если у товара не указан вес.
	DefaultUnitWeightGrams = 750
	// BillableUnitGrams — делитель тарифной единицы (1.1 кг). Фактический вес
	// делится на него и округляется вверх: тарификация посылок дискретна.
	BillableUnitGrams = 1100
	// InternationalFlatRate — фиксированная ставка за зарубежную доставку,
	// независимо от веса.
	InternationalFlatRate = 2000.0
)

// ShippingZone — тарифная зона внутри страны.
type ShippingZone string

const (
	// ZoneHomeState — домашний штат склада (Керала, PIN 67xxxx–69xxxx).
	ZoneHomeState ShippingZone = "home_state"
	// ZoneNeighborState — соседний штат с повышенной ставкой (Тамил-Наду, 60–66).
	ZoneNeighborState ShippingZone = "neighbor_state"
	// ZoneTier2 — группа штатов второго пояса (Карнатака 56–59,
	// Телангана/АП 50–53, Махараштра 40–44).
	ZoneTier2 ShippingZone = "tier2"
	// ZoneOther — все остальные направления и любой некорректный PIN.
	ZoneOther ShippingZone = "other"
)

// zoneRates — ставка за одну тарифную единицу по зонам.
var zoneRates = map[ShippingZone]float64{
	ZoneHomeState:     50,
	ZoneNeighborState: 80,
	ZoneTier2:         100,
	ZoneOther:         120,
}

// ShippingLine — вес и количество одной позиции корзины.
type ShippingLine struct {
	// WeightGrams — вес единицы товара; 0 означает "не указан".
	WeightGrams int
	Qty         int
}

// Destination — минимум адреса, нужный расчёту доставки.
type Destination struct {
	Country    string
	PostalCode string
}

// ComputeShipping — чистая функция: вес корзины + направление → стоимость доставки.
// Никогда не возвращает ошибку: некорректный PIN тарифицируется по самой
// дорогой зоне, чтобы checkout не блокировался на плохом адресе.
func ComputeShipping(lines []ShippingLine, dest Destination) float64 {
	if dest.Country != "" && dest.Country != HomeCountry {
		return InternationalFlatRate
	}

	total := 0
	for _, line := range lines {
		unit := line.WeightGrams
		if unit <= 0 {
			unit = DefaultUnitWeightGrams
		}
		total += unit * line.Qty
	}

	zone := ZoneForPostalCode(dest.PostalCode)
	return float64(BillableUnits(total)) * zoneRates[zone]
}

// BillableUnits округляет фактический вес вверх до целого числа тарифных единиц.
func BillableUnits(totalGrams int) int {
	if totalGrams <= 0 {
		return 0
	}
	return (totalGrams + BillableUnitGrams - 1) / BillableUnitGrams
}

// ZoneForPostalCode сопоставляет ведущие цифры шестизначного PIN тарифной зоне.
// Любой неразборчивый код попадает в ZoneOther.
func ZoneForPostalCode(pin string) ShippingZone {
	if len(pin) != 6 {
		return ZoneOther
	}
	if _, err := strconv.Atoi(pin); err != nil {
		return ZoneOther
	}

	prefix, err := strconv.Atoi(pin[:2])
	if err != nil {
		return ZoneOther
	}

	switch {
	case prefix >= 67 && prefix <= 69:
		return ZoneHomeState
	case prefix >= 60 && prefix <= 66:
		return ZoneNeighborState
	case prefix >= 56 && prefix <= 59,
		prefix >= 50 && prefix <= 53,
		prefix >= 40 && prefix <= 44:
		return ZoneTier2
	default:
		return ZoneOther
	}
}

// ZoneRate возвращает ставку зоны за тарифную единицу.
func ZoneRate(zone ShippingZone) float64 {
	if rate, ok := zoneRates[zone]; ok {
		return rate
	}
	return zoneRates[ZoneOther]
}
