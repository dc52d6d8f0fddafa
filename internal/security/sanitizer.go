package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mroshb/impostor_bot/pkg/utils"
)

// MaxNameLength matches the players.name column.
const MaxNameLength = 100

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeString removes potentially dangerous characters
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeName cleans a user supplied display name: markup is stripped,
// entities are decoded back to text and the result is cut to MaxNameLength.
func SanitizeName(input string) string {
	name := html.UnescapeString(SanitizeHTML(SanitizeString(input)))
	name = strings.Join(strings.Fields(name), " ")
	return utils.Truncate(name, MaxNameLength)
}
