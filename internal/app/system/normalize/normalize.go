// Package normalize trims and canonicalizes user-supplied strings before
// they are validated or stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims whitespace and lowercases. This is the stored email_ci key.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of
// whitespace to one space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text trims surrounding whitespace only; used for descriptions and other
// free text where inner spacing matters.
func Text(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// SearchKey folds s for case- and accent-insensitive substring search.
func SearchKey(s string) string {
	return text.Fold(strings.TrimSpace(s))
}
