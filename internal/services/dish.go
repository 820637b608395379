package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/menuscan/menu-layout-service/internal/layout"
	"github.com/menuscan/menu-layout-service/internal/models"
)

// Warning codes
const (
	WarnNoPrice          = "NO_PRICE"
	WarnUnparseablePrice = "UNPARSEABLE_PRICE"
	WarnShortTitle       = "SHORT_TITLE"
)

// BuildDishes summarizes menu items for presentation
func BuildDishes(items []models.MenuItem) []models.Dish {
	dishes := make([]models.Dish, 0, len(items))
	for i := range items {
		it := &items[i]
		d := models.Dish{
			ID:            it.ID,
			Title:         it.TitleText(),
			PriceModifier: it.PriceModifierText(),
			Prices:        make([]string, 0, len(it.Price)),
			Description:   it.DescriptionText(),
			Bounds:        layout.ItemBounds(it),
		}
		for _, p := range it.Price {
			d.Prices = append(d.Prices, p.Text)
			if v, ok := ParsePrice(p.Text); ok {
				d.PriceValues = append(d.PriceValues, v)
			}
		}
		dishes = append(dishes, d)
	}
	return dishes
}

// ParsePrice extracts a decimal amount from a price token.
// Currency marks and thousands separators are dropped; a comma followed by
// exactly two digits is read as a decimal comma ("12,50").
func ParsePrice(text string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ".,")
	if cleaned == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(cleaned, ".") && strings.Contains(cleaned, ","):
		// "1,190.50"
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case strings.Contains(cleaned, ","):
		i := strings.LastIndex(cleaned, ",")
		if len(cleaned)-i-1 == 2 && strings.Count(cleaned, ",") == 1 {
			cleaned = cleaned[:i] + "." + cleaned[i+1:]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ReviewDishes flags dishes that need a human look.
// Nothing here rejects a dish; warnings only annotate the analysis.
func ReviewDishes(dishes []models.Dish) []models.Warning {
	var warnings []models.Warning
	for _, d := range dishes {
		if len(d.Prices) == 0 {
			warnings = append(warnings, models.Warning{
				DishID:  d.ID,
				Code:    WarnNoPrice,
				Message: fmt.Sprintf("dish %q has no price", d.Title),
			})
		} else if len(d.PriceValues) < len(d.Prices) {
			warnings = append(warnings, models.Warning{
				DishID:  d.ID,
				Code:    WarnUnparseablePrice,
				Message: fmt.Sprintf("dish %q has prices that are not numbers: %s", d.Title, strings.Join(d.Prices, ", ")),
			})
		}
		if len([]rune(strings.TrimSpace(d.Title))) < 3 {
			warnings = append(warnings, models.Warning{
				DishID:  d.ID,
				Code:    WarnShortTitle,
				Message: fmt.Sprintf("dish title %q is suspiciously short", d.Title),
			})
		}
	}
	return warnings
}
