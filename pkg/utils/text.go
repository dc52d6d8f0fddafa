package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeCode upper-cases and trims a user-typed room code.
func NormalizeCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
