package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Required fails for empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len([]rune(value)) >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters long", min)},
	}
}

// ValidEmail accepts a bare RFC 5322 address ("a@b.com", not "A <a@b.com>").
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			return err == nil && addr.Address == value && strings.Contains(addr.Address, ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

func Positive(field string, value int) Rule {
	return Rule{
		Check: func() bool { return value > 0 },
		Error: ValidationError{Field: field, Message: "must be greater than zero"},
	}
}

// NoWhitespace fails when value contains any whitespace rune.
func NoWhitespace(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsSpace) < 0 },
		Error: ValidationError{Field: field, Message: "must not contain whitespace"},
	}
}
