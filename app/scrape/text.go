package scrape

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// cleanText folds compatibility characters (non-breaking spaces, ligatures)
// and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func foldKey(s string) string {
	return cases.Fold().String(cleanText(s))
}
