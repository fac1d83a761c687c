package intake

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelCaser = cases.Title(language.Und)

// NormalizeLabel canonicalizes crop/variety labels from intake forms:
// collapsed whitespace, title case. Keeps "roma  TOMATO" and "Roma Tomato"
// from becoming distinct crops.
func NormalizeLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return labelCaser.String(strings.ToLower(s))
}
