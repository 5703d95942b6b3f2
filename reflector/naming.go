package reflector

import (
	"unicode"
	"unicode/utf8"
)

// lowerCamel converts an exported Go name to the script convention:
// "Echo" -> "echo", "EchoSync" -> "echoSync", "URLPrefix" -> "urlPrefix".
func lowerCamel(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(runes):
		// single leading capital, or all caps
	default:
		// keep the capital that starts the next word
		if unicode.IsLower(runes[n]) {
			n--
		}
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
