package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZoneForPostalCode_Boundaries(t *testing.T) {
	cases := []struct {
		pin  string
		zone ShippingZone
	}{
		// Домашний штат: 67–69.
		{"670001", ZoneHomeState},
		{"695615", ZoneHomeState},
		{"699999", ZoneHomeState},
		{"660001", ZoneNeighborState}, // 67 - 1
		{"700001", ZoneOther},         // 69 + 1

		// Соседний штат: 60–66.
		{"600001", ZoneNeighborState},
		{"669999", ZoneNeighborState},
		{"590001", ZoneTier2}, // 60 - 1

		// Второй пояс: 56–59, 50–53, 40–44.
		{"560001", ZoneTier2},
		{"599999", ZoneTier2},
		{"500001", ZoneTier2},
		{"539999", ZoneTier2},
		{"400001", ZoneTier2},
		{"449999", ZoneTier2},
		{"450001", ZoneOther}, // 44 + 1
		{"540001", ZoneOther}, // между 53 и 56
		{"550001", ZoneOther},
		{"390001", ZoneOther}, // 40 - 1
		{"490001", ZoneOther}, // 49 — между поясами

		// Остальная страна.
		{"110001", ZoneOther},
		{"999999", ZoneOther},
	}

	for _, tc := range cases {
		require.Equal(t, tc.zone, ZoneForPostalCode(tc.pin), "pin %s", tc.pin)
	}
}

func TestZoneForPostalCode_Malformed(t *testing.T) {
	// Любой неразборчивый PIN уходит в самую дорогую зону, а не в ошибку.
	for _, pin := range []string{"", "12345", "1234567", "68abc1", "abcdef", " 68001"} {
		require.Equal(t, ZoneOther, ZoneForPostalCode(pin), "pin %q", pin)
	}
}

func TestBillableUnits_Rounding(t *testing.T) {
	cases := []struct {
		grams int
		units int
	}{
		{0, 0},
		{1, 1},
		{1100, 1},    // ровно одна единица — без доплаты
		{1101, 2},    // превышение на 1 грамм округляется в целую единицу
		{2200, 2},
		{2201, 3},
		{11000, 10},
	}

	for _, tc := range cases {
		require.Equal(t, tc.units, BillableUnits(tc.grams), "grams %d", tc.grams)
	}
}

func TestComputeShipping_Domestic(t *testing.T) {
	lines := []ShippingLine{
		{WeightGrams: 500, Qty: 2}, // 1000 г
		{WeightGrams: 0, Qty: 1},   // вес не указан → 750 г по умолчанию
	}
	// 1750 г → 2 тарифные единицы.
	dest := Destination{Country: "IN", PostalCode: "682001"}
	require.Equal(t, 2*ZoneRate(ZoneHomeState), ComputeShipping(lines, dest))

	dest.PostalCode = "600042"
	require.Equal(t, 2*ZoneRate(ZoneNeighborState), ComputeShipping(lines, dest))

	dest.PostalCode = "not-a-pin"
	require.Equal(t, 2*ZoneRate(ZoneOther), ComputeShipping(lines, dest))
}

func TestComputeShipping_International(t *testing.T) {
	lines := []ShippingLine{{WeightGrams: 250, Qty: 1}}
	dest := Destination{Country: "US", PostalCode: "90210"}
	// Плоская ставка, вес не участвует.
	require.Equal(t, InternationalFlatRate, ComputeShipping(lines, dest))

	heavy := []ShippingLine{{WeightGrams: 20000, Qty: 5}}
	require.Equal(t, InternationalFlatRate, ComputeShipping(heavy, dest))
}
