// Package email holds small helpers for working with user email addresses.
package email

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const fallbackName = "User"

// DeriveNameFromEmail guesses a first and last name from the local part of
// an address. Sign-up accepts a bare email, so new profiles need usable
// defaults: "priya.sharma@example.com" yields ("Priya", "Sharma"). When the
// local part gives nothing to work with, both names fall back to "User".
func DeriveNameFromEmail(address string) (first, last string) {
	local, _, _ := strings.Cut(address, "@")

	words := strings.FieldsFunc(local, isSeparator)
	if len(words) == 0 {
		return fallbackName, fallbackName
	}

	first = title(words[0])
	last = fallbackName
	if len(words) > 1 {
		last = title(words[len(words)-1])
	}
	return first, last
}

func isSeparator(r rune) bool {
	return strings.ContainsRune("._-+", r)
}

func title(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + word[size:]
}
