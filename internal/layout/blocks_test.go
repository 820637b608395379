package layout

import (
	"reflect"
	"testing"

	"github.com/menuscan/menu-layout-service/internal/models"
)

func TestMergeBlocks_MergesRunsButNotPrices(t *testing.T) {
	line := models.Line{Words: []models.Word{
		word(0, "DOUBLE", models.CategoryPriceModifier, 0, 0, 40, 10),
		word(1, "TRIPLE", models.CategoryPriceModifier, 45, 0, 90, 10),
		word(2, "CHEESE", models.CategoryTitle, 100, 0, 150, 12),
		word(3, "BURGER", models.CategoryTitle, 155, 1, 210, 11),
		word(4, "930", models.CategoryPrice, 300, 0, 330, 10),
		word(5, "1190", models.CategoryPrice, 340, 0, 380, 10),
		word(6, "eggs,", models.CategoryDescription, 400, 0, 430, 10),
		word(7, "arugula", models.CategoryDescription, 435, 0, 480, 10),
	}}

	blocks := MergeBlocks([]models.Line{line})

	var got []string
	for _, b := range blocks {
		got = append(got, string(b.Category)+":"+b.Text)
	}
	want := []string{
		"price_modifier:DOUBLE TRIPLE",
		"title:CHEESE BURGER",
		"price:930",
		"price:1190",
		"description:eggs, arugula",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	title := blocks[1]
	if title.BBox != (models.BBox{X0: 100, Y0: 0, X1: 210, Y1: 12}) {
		t.Errorf("unexpected title box %+v", title.BBox)
	}
	if !reflect.DeepEqual(title.WordIDs, []int{2, 3}) {
		t.Errorf("unexpected word ids %v", title.WordIDs)
	}
}

func TestMergeBlocks_RunEndsOnCategoryChange(t *testing.T) {
	line := models.Line{Words: []models.Word{
		word(0, "a", models.CategoryDescription, 0, 0, 10, 10),
		word(1, "B", models.CategoryTitle, 20, 0, 30, 10),
		word(2, "c", models.CategoryDescription, 40, 0, 50, 10),
	}}

	if blocks := MergeBlocks([]models.Line{line}); len(blocks) != 3 {
		t.Errorf("expected 3 blocks, got %d", len(blocks))
	}
}

func TestMergeBlocks_DoesNotCrossLines(t *testing.T) {
	lines := []models.Line{
		{Words: []models.Word{word(0, "one", models.CategoryDescription, 0, 0, 10, 10)}},
		{Words: []models.Word{word(1, "two", models.CategoryDescription, 0, 20, 10, 30)}},
	}

	if blocks := MergeBlocks(lines); len(blocks) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(blocks))
	}
}
