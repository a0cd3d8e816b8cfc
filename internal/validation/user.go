package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen максимальная длина пароля
	MaxPasswordLen = 128
	// PasswordSpecials are the special characters a password must draw from.
	PasswordSpecials = "!@#$%^&*"
)

var (
	// NamePattern: letters of any script, whitespace and dashes, 2-200 chars.
	NamePattern = regexp.MustCompile(`^[\p{L}\s-]{2,200}$`)
	// EmailPattern follows the WHATWG "valid e-mail address" production.
	EmailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")
)

// ValidateName checks the raw display name before normalization.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !NamePattern.MatchString(name) {
		return fmt.Errorf("name must be 2-200 letters, spaces or dashes")
	}
	return nil
}

// NormalizeName strips diacritics, replaces everything that is not a latin
// letter with a space and title-cases the remaining words.
//
//	"jimi hèndrix__" -> "Jimi Hendrix"
//	"中村哲二"       -> ""
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	stripped = strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			return r
		}
		return ' '
	}, stripped)

	words := strings.Fields(stripped)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("email is not valid")
	}
	return nil
}

// ValidatePassword enforces the password policy: 8-128 characters with at
// least one lower case letter, one upper case letter, one digit and one of
// PasswordSpecials.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	if n > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	if !lower || !upper || !digit || !special {
		return fmt.Errorf("password must contain a lower case letter, an upper case letter, a digit and one of %s", PasswordSpecials)
	}
	return nil
}
