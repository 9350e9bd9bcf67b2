// Package htmlsanitize strips markup from user-entered free text before it
// is stored. Club descriptions and names are plain text; any HTML pasted
// into them is removed rather than escaped.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// StripTags removes every tag (and the contents of script/style elements)
// and returns plain text. Entities are decoded so "Tom &amp; Jerry" is
// stored as "Tom & Jerry".
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(policy().Sanitize(s))
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.ContainsRune(s, '<') || StripTags(s) == s
}
