package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
)

// Singular returns the singular form of a (possibly camelCase) name,
// inflecting only the last word: "userTypes" → "userType".
func Singular(name string) string {
	head, tail := splitLastWord(name)
	return head + inflection.Singular(tail)
}

// ForeignKey returns the default camelCase key column referencing name:
// "users" → "userId", "userType" → "userTypeId".
func ForeignKey(name string) string {
	return LowerFirst(Singular(name)) + "Id"
}

// LowerFirst lower-cases the first rune: "UserType" → "userType".
func LowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// ValidIdent reports whether name can be used as an entity, association,
// column or alias name. Dots separate result paths and question marks
// are bind placeholders, so neither may appear.
func ValidIdent(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, ".?`\"'\x00")
}

// splitLastWord splits a camelCase or snake_case name before its last word.
func splitLastWord(s string) (string, string) {
	runes := []rune(s)
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == '_' {
			return string(runes[:i+1]), string(runes[i+1:])
		}
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			return string(runes[:i]), string(runes[i:])
		}
	}
	return "", s
}
