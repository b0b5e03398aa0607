package cli

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money formats prices in one currency for one locale.
type Money struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewMoney parses an ISO 4217 code and a BCP 47 locale.
func NewMoney(code, locale string) (*Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("unknown currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q: %w", locale, err)
	}
	return &Money{unit: unit, printer: message.NewPrinter(tag)}, nil
}

func (m *Money) Format(v float64) string {
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(v)))
}
