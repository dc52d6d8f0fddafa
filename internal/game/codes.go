package game

import (
	"strings"

	"github.com/mroshb/impostor_bot/pkg/utils"
)

// Room codes avoid characters that are easy to confuse when read aloud
// (0/O, 1/I).
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// CodeGenerator produces candidate room codes. Uniqueness is enforced by the
// store, not the generator.
type CodeGenerator func() (string, error)

// GenerateCode draws a random room code.
func GenerateCode() (string, error) {
	return utils.RandomString(CodeAlphabet, CodeLength)
}

// NormalizeCode turns user input into canonical code form.
func NormalizeCode(input string) string {
	return utils.NormalizeCode(input)
}

// ValidCode reports whether code is a well-formed, normalized room code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}
