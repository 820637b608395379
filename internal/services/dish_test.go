package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/menuscan/menu-layout-service/internal/models"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"450", "450", true},
		{"450₽", "450", true},
		{"$12.50", "12.5", true},
		{"12,50", "12.5", true},
		{"1,190", "1190", true},
		{"1 190 руб.", "1190", true},
		{"1,190.50", "1190.5", true},
		{"free", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.in)
		if ok != tc.ok {
			t.Errorf("ParsePrice(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got.String() != tc.want {
			t.Errorf("ParsePrice(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestBuildDishes(t *testing.T) {
	items := []models.MenuItem{{
		ID:            uuid.New(),
		PriceModifier: []models.Word{{Text: "DOUBLE"}, {Text: "TRIPLE"}},
		Title:         []models.Word{{Text: "CHEESEBURGER", BBox: models.BBox{X0: 10, Y0: 40, X1: 150, Y1: 58}}},
		Price:         []models.Word{{Text: "930"}, {Text: "1190"}},
		Description:   []models.Word{{Text: "eggs,"}, {Text: "arugula"}},
	}}

	dishes := BuildDishes(items)
	if len(dishes) != 1 {
		t.Fatalf("expected 1 dish, got %d", len(dishes))
	}
	d := dishes[0]
	if d.PriceModifier != "DOUBLE TRIPLE" || d.Title != "CHEESEBURGER" || d.Description != "eggs, arugula" {
		t.Errorf("unexpected dish %+v", d)
	}
	if len(d.PriceValues) != 2 || d.PriceValues[1].String() != "1190" {
		t.Errorf("unexpected price values %v", d.PriceValues)
	}
	if d.ID != items[0].ID {
		t.Error("dish must keep the item id")
	}
}

func TestReviewDishes(t *testing.T) {
	dishes := []models.Dish{
		{ID: uuid.New(), Title: "SOUP", Prices: []string{"300"}, PriceValues: nil},
		{ID: uuid.New(), Title: "TEA", Prices: nil},
		{ID: uuid.New(), Title: "PHO", Prices: []string{"250"}},
	}
	dishes[2].PriceValues = append(dishes[2].PriceValues, mustPrice(t, "250"))

	warnings := ReviewDishes(dishes)
	codes := map[string]int{}
	for _, w := range warnings {
		codes[w.Code]++
	}
	if codes[WarnUnparseablePrice] != 1 || codes[WarnNoPrice] != 1 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	if codes[WarnShortTitle] != 0 {
		t.Errorf("three letter titles are fine, got %v", warnings)
	}
}

func mustPrice(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, ok := ParsePrice(s)
	if !ok {
		t.Fatalf("cannot parse %q", s)
	}
	return v
}
