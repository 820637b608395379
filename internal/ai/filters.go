package ai

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/menuscan/menu-layout-service/internal/models"
)

var digitsRegex = regexp.MustCompile(`^\d+$`)

// IsNumeric reports whether text is made of ASCII digits only
func IsNumeric(text string) bool {
	return digitsRegex.MatchString(strings.TrimSpace(text))
}

// scriptLetters counts Latin and Cyrillic letters
func scriptLetters(text string) int {
	n := 0
	for _, r := range text {
		if unicode.In(r, unicode.Latin, unicode.Cyrillic) {
			n++
		}
	}
	return n
}

// symbolsOnly reports whether text has no letters or digits at all ("|", "•", "--")
func symbolsOnly(text string) bool {
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// ValidTitle reports whether a word may keep the title label
func ValidTitle(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || symbolsOnly(t) {
		return false
	}
	return scriptLetters(t) >= 2
}

// CorrectCategory applies the correction filters to one word's label.
// Numeric override wins over everything; invalid titles drop to description.
func CorrectCategory(text string, c models.Category) models.Category {
	c = models.ParseCategory(string(c))
	if IsNumeric(text) {
		return models.CategoryPrice
	}
	if c == models.CategoryTitle && !ValidTitle(text) {
		return models.CategoryDescription
	}
	return c
}

// ApplyCorrections runs CorrectCategory over every word of every line, in place
func ApplyCorrections(lines []models.Line) []models.Line {
	for i := range lines {
		for j := range lines[i].Words {
			w := &lines[i].Words[j]
			w.Category = CorrectCategory(w.Text, w.Category)
		}
	}
	return lines
}

// cloneLines copies lines deeply enough for word categories to be rewritten
func cloneLines(lines []models.Line) []models.Line {
	out := make([]models.Line, len(lines))
	for i, l := range lines {
		out[i] = l
		out[i].Words = append([]models.Word(nil), l.Words...)
	}
	return out
}
